package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxbill/voxbill/internal/api/dto"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/service"
	"github.com/voxbill/voxbill/internal/types"
)

type JurisdictionHandler struct {
	service service.JurisdictionService
	log     *logger.Logger
}

func NewJurisdictionHandler(service service.JurisdictionService, log *logger.Logger) *JurisdictionHandler {
	return &JurisdictionHandler{service: service, log: log}
}

// @Summary Create a jurisdiction
// @Tags Jurisdictions
// @Accept json
// @Produce json
// @Param request body dto.CreateJurisdictionRequest true "Jurisdiction definition"
// @Success 201 {object} dto.JurisdictionResponse
// @Router /jurisdictions [post]
func (h *JurisdictionHandler) CreateJurisdiction(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateJurisdictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreateJurisdiction(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create jurisdiction", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Get a jurisdiction
// @Tags Jurisdictions
// @Produce json
// @Param id path string true "Jurisdiction ID"
// @Success 200 {object} dto.JurisdictionResponse
// @Router /jurisdictions/{id} [get]
func (h *JurisdictionHandler) GetJurisdiction(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetJurisdiction(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get jurisdiction", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary List jurisdictions
// @Tags Jurisdictions
// @Produce json
// @Success 200 {object} dto.ListJurisdictionsResponse
// @Router /jurisdictions [get]
func (h *JurisdictionHandler) ListJurisdictions(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.JurisdictionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	response, err := h.service.ListJurisdictions(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list jurisdictions", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Update a jurisdiction
// @Tags Jurisdictions
// @Accept json
// @Produce json
// @Param id path string true "Jurisdiction ID"
// @Param request body dto.UpdateJurisdictionRequest true "Fields to update"
// @Success 200 {object} dto.JurisdictionResponse
// @Router /jurisdictions/{id} [put]
func (h *JurisdictionHandler) UpdateJurisdiction(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateJurisdictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.UpdateJurisdiction(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to update jurisdiction", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Delete a jurisdiction
// @Tags Jurisdictions
// @Param id path string true "Jurisdiction ID"
// @Success 204
// @Router /jurisdictions/{id} [delete]
func (h *JurisdictionHandler) DeleteJurisdiction(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.service.DeleteJurisdiction(ctx, c.Param("id")); err != nil {
		h.log.Error("Failed to delete jurisdiction", "error", err)
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

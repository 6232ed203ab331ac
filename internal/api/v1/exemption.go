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

type ExemptionHandler struct {
	service service.ExemptionService
	log     *logger.Logger
}

func NewExemptionHandler(service service.ExemptionService, log *logger.Logger) *ExemptionHandler {
	return &ExemptionHandler{service: service, log: log}
}

// @Summary Create a tax exemption
// @Tags Exemptions
// @Accept json
// @Produce json
// @Param request body dto.CreateExemptionRequest true "Exemption definition"
// @Success 201 {object} dto.ExemptionResponse
// @Router /taxes/exemptions [post]
func (h *ExemptionHandler) CreateExemption(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreateExemption(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create exemption", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Get an exemption
// @Tags Exemptions
// @Produce json
// @Param id path string true "Exemption ID"
// @Success 200 {object} dto.ExemptionResponse
// @Router /taxes/exemptions/{id} [get]
func (h *ExemptionHandler) GetExemption(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetExemption(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get exemption", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary List exemptions
// @Tags Exemptions
// @Produce json
// @Success 200 {object} dto.ListExemptionsResponse
// @Router /taxes/exemptions [get]
func (h *ExemptionHandler) ListExemptions(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.ExemptionFilter
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

	response, err := h.service.ListExemptions(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list exemptions", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Update an exemption
// @Tags Exemptions
// @Accept json
// @Produce json
// @Param id path string true "Exemption ID"
// @Param request body dto.UpdateExemptionRequest true "Fields to update"
// @Success 200 {object} dto.ExemptionResponse
// @Router /taxes/exemptions/{id} [put]
func (h *ExemptionHandler) UpdateExemption(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.UpdateExemption(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to update exemption", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Delete an exemption
// @Tags Exemptions
// @Param id path string true "Exemption ID"
// @Success 204
// @Router /taxes/exemptions/{id} [delete]
func (h *ExemptionHandler) DeleteExemption(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.service.DeleteExemption(ctx, c.Param("id")); err != nil {
		h.log.Error("Failed to delete exemption", "error", err)
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List an exemption's usage audit log
// @Tags Exemptions
// @Produce json
// @Param id path string true "Exemption ID"
// @Success 200 {array} dto.ExemptionUsageResponse
// @Router /taxes/exemptions/{id}/usage [get]
func (h *ExemptionHandler) ListExemptionUsage(c *gin.Context) {
	ctx := c.Request.Context()
	usages, err := h.service.ListUsageByExemption(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to list exemption usage", "error", err)
		c.Error(err)
		return
	}

	items := make([]*dto.ExemptionUsageResponse, len(usages))
	for i, u := range usages {
		items[i] = &dto.ExemptionUsageResponse{TaxExemptionUsage: u}
	}
	c.JSON(http.StatusOK, items)
}

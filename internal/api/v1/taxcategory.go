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

type TaxCategoryHandler struct {
	service service.TaxCategoryService
	log     *logger.Logger
}

func NewTaxCategoryHandler(service service.TaxCategoryService, log *logger.Logger) *TaxCategoryHandler {
	return &TaxCategoryHandler{service: service, log: log}
}

// @Summary Create a tax category
// @Tags Tax Categories
// @Accept json
// @Produce json
// @Param request body dto.CreateTaxCategoryRequest true "Category definition"
// @Success 201 {object} dto.TaxCategoryResponse
// @Router /taxes/categories [post]
func (h *TaxCategoryHandler) CreateTaxCategory(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateTaxCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreateTaxCategory(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create tax category", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Get a tax category
// @Tags Tax Categories
// @Produce json
// @Param id path string true "Tax category ID"
// @Success 200 {object} dto.TaxCategoryResponse
// @Router /taxes/categories/{id} [get]
func (h *TaxCategoryHandler) GetTaxCategory(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetTaxCategory(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get tax category", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary List tax categories
// @Tags Tax Categories
// @Produce json
// @Success 200 {object} dto.ListTaxCategoriesResponse
// @Router /taxes/categories [get]
func (h *TaxCategoryHandler) ListTaxCategories(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.TaxCategoryFilter
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

	response, err := h.service.ListTaxCategories(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list tax categories", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Update a tax category
// @Tags Tax Categories
// @Accept json
// @Produce json
// @Param id path string true "Tax category ID"
// @Param request body dto.UpdateTaxCategoryRequest true "Fields to update"
// @Success 200 {object} dto.TaxCategoryResponse
// @Router /taxes/categories/{id} [put]
func (h *TaxCategoryHandler) UpdateTaxCategory(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateTaxCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.UpdateTaxCategory(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to update tax category", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Delete a tax category
// @Tags Tax Categories
// @Param id path string true "Tax category ID"
// @Success 204
// @Router /taxes/categories/{id} [delete]
func (h *TaxCategoryHandler) DeleteTaxCategory(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.service.DeleteTaxCategory(ctx, c.Param("id")); err != nil {
		h.log.Error("Failed to delete tax category", "error", err)
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxbill/voxbill/internal/api/dto"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/service"
	"github.com/voxbill/voxbill/internal/types"
)

type TaxRateHandler struct {
	service service.TaxRateService
	log     *logger.Logger
}

func NewTaxRateHandler(service service.TaxRateService, log *logger.Logger) *TaxRateHandler {
	return &TaxRateHandler{service: service, log: log}
}

// @Summary Create a tax rate
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param request body dto.CreateTaxRateRequest true "Tax rate definition"
// @Success 201 {object} dto.TaxRateResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /taxes/rates [post]
func (h *TaxRateHandler) CreateTaxRate(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreateTaxRate(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create tax rate", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// @Summary Get a tax rate
// @Tags Tax Rates
// @Produce json
// @Param id path string true "Tax rate ID"
// @Success 200 {object} dto.TaxRateResponse
// @Router /taxes/rates/{id} [get]
func (h *TaxRateHandler) GetTaxRate(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetTaxRate(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get tax rate", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary List tax rates
// @Tags Tax Rates
// @Produce json
// @Success 200 {object} dto.ListTaxRatesResponse
// @Router /taxes/rates [get]
func (h *TaxRateHandler) ListTaxRates(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.TaxRateFilter
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

	response, err := h.service.ListTaxRates(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list tax rates", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Update a tax rate
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param id path string true "Tax rate ID"
// @Param request body dto.UpdateTaxRateRequest true "Fields to update"
// @Success 200 {object} dto.TaxRateResponse
// @Router /taxes/rates/{id} [put]
func (h *TaxRateHandler) UpdateTaxRate(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.UpdateTaxRate(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to update tax rate", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Expire a tax rate
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param id path string true "Tax rate ID"
// @Param request body dto.ExpireTaxRateRequest false "Expiry options"
// @Success 200 {object} dto.TaxRateResponse
// @Router /taxes/rates/{id}/expire [post]
func (h *TaxRateHandler) ExpireTaxRate(c *gin.Context) {
	ctx := c.Request.Context()
	// the expiry request body is optional; an absent body expires now
	var req dto.ExpireTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.ExpireTaxRate(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to expire tax rate", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Schedule a tax rate change
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param id path string true "Tax rate ID"
// @Param request body dto.ScheduleTaxRateChangeRequest true "Scheduled replacement"
// @Success 201 {object} dto.TaxRateResponse
// @Router /taxes/rates/{id}/schedule [post]
func (h *TaxRateHandler) ScheduleTaxRateChange(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ScheduleTaxRateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.ScheduleTaxRateChange(ctx, c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to schedule tax rate change", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Bulk import tax rates
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param request body dto.BulkImportTaxRatesRequest true "Rates to import"
// @Success 201 {object} dto.BulkImportTaxRatesResponse
// @Router /taxes/rates/import [post]
func (h *TaxRateHandler) BulkImportTaxRates(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.BulkImportTaxRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.BulkImportTaxRates(ctx, &req)
	if err != nil {
		h.log.Error("Failed to bulk import tax rates", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Export the tax rate catalog
// @Tags Tax Rates
// @Produce json
// @Success 200 {object} dto.TaxRateExport
// @Router /taxes/rates/export [get]
func (h *TaxRateHandler) ExportTaxRates(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.TaxRateFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewNoLimitQueryFilter()
	}

	response, err := h.service.ExportTaxRates(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to export tax rates", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Restore tax rates from an export
// @Tags Tax Rates
// @Accept json
// @Produce json
// @Param request body dto.RestoreTaxRatesRequest true "Export payload"
// @Success 201 {object} dto.BulkImportTaxRatesResponse
// @Router /taxes/rates/restore [post]
func (h *TaxRateHandler) RestoreTaxRates(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.RestoreTaxRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.RestoreTaxRates(ctx, &req)
	if err != nil {
		h.log.Error("Failed to restore tax rates", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// @Summary Get a tax rate's change history
// @Tags Tax Rates
// @Produce json
// @Param id path string true "Tax rate ID"
// @Success 200 {array} dto.TaxRateHistoryResponse
// @Router /taxes/rates/{id}/history [get]
func (h *TaxRateHandler) GetTaxRateHistory(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetTaxRateHistory(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get tax rate history", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

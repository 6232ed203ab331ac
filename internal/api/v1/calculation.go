package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxbill/voxbill/internal/api/dto"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/service"
)

type CalculationHandler struct {
	service service.TaxCalculationService
	log     *logger.Logger
}

func NewCalculationHandler(service service.TaxCalculationService, log *logger.Logger) *CalculationHandler {
	return &CalculationHandler{service: service, log: log}
}

// @Summary Calculate taxes for a charge
// @Description Resolves jurisdictions, rates and exemptions for one charge and returns the full tax breakdown
// @Tags Taxes
// @Accept json
// @Produce json
// @Param request body dto.CalculateTaxRequest true "Calculation request"
// @Success 200 {object} dto.CalculationResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /taxes/calculate [post]
func (h *CalculationHandler) CalculateTax(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CalculateTax(ctx, &req)
	if err != nil {
		h.log.Error("Failed to calculate tax", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	v1 "github.com/voxbill/voxbill/internal/api/v1"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Calculation  *v1.CalculationHandler
	TaxRate      *v1.TaxRateHandler
	Jurisdiction *v1.JurisdictionHandler
	TaxCategory  *v1.TaxCategoryHandler
	Exemption    *v1.ExemptionHandler
}

func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handlers.Health.Health)

	// v1 routes are tenant-scoped
	v1Group := router.Group("/v1", middleware.TenantMiddleware(log))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Calculation route
	taxes := router.Group("/taxes")
	{
		taxes.POST("/calculate", handlers.Calculation.CalculateTax)
	}

	// Rate management routes
	rates := taxes.Group("/rates")
	{
		rates.POST("", handlers.TaxRate.CreateTaxRate)
		rates.GET("", handlers.TaxRate.ListTaxRates)
		rates.POST("/import", handlers.TaxRate.BulkImportTaxRates)
		rates.GET("/export", handlers.TaxRate.ExportTaxRates)
		rates.POST("/restore", handlers.TaxRate.RestoreTaxRates)
		rates.GET("/:id", handlers.TaxRate.GetTaxRate)
		rates.PUT("/:id", handlers.TaxRate.UpdateTaxRate)
		rates.POST("/:id/expire", handlers.TaxRate.ExpireTaxRate)
		rates.POST("/:id/schedule", handlers.TaxRate.ScheduleTaxRateChange)
		rates.GET("/:id/history", handlers.TaxRate.GetTaxRateHistory)
	}

	// Category routes
	categories := taxes.Group("/categories")
	{
		categories.POST("", handlers.TaxCategory.CreateTaxCategory)
		categories.GET("", handlers.TaxCategory.ListTaxCategories)
		categories.GET("/:id", handlers.TaxCategory.GetTaxCategory)
		categories.PUT("/:id", handlers.TaxCategory.UpdateTaxCategory)
		categories.DELETE("/:id", handlers.TaxCategory.DeleteTaxCategory)
	}

	// Exemption routes
	exemptions := taxes.Group("/exemptions")
	{
		exemptions.POST("", handlers.Exemption.CreateExemption)
		exemptions.GET("", handlers.Exemption.ListExemptions)
		exemptions.GET("/:id", handlers.Exemption.GetExemption)
		exemptions.PUT("/:id", handlers.Exemption.UpdateExemption)
		exemptions.DELETE("/:id", handlers.Exemption.DeleteExemption)
		exemptions.GET("/:id/usage", handlers.Exemption.ListExemptionUsage)
	}

	// Jurisdiction routes
	jurisdictions := router.Group("/jurisdictions")
	{
		jurisdictions.POST("", handlers.Jurisdiction.CreateJurisdiction)
		jurisdictions.GET("", handlers.Jurisdiction.ListJurisdictions)
		jurisdictions.GET("/:id", handlers.Jurisdiction.GetJurisdiction)
		jurisdictions.PUT("/:id", handlers.Jurisdiction.UpdateJurisdiction)
		jurisdictions.DELETE("/:id", handlers.Jurisdiction.DeleteJurisdiction)
	}
}

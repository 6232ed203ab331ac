package service

import (
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	JurisdictionRepo   jurisdiction.Repository
	TaxCategoryRepo    taxcategory.Repository
	TaxRateRepo        taxrate.Repository
	TaxRateHistoryRepo taxrate.HistoryRepository
	ExemptionRepo      exemption.Repository
	ExemptionUsageRepo exemption.UsageRepository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	jurisdictionRepo jurisdiction.Repository,
	taxCategoryRepo taxcategory.Repository,
	taxRateRepo taxrate.Repository,
	taxRateHistoryRepo taxrate.HistoryRepository,
	exemptionRepo exemption.Repository,
	exemptionUsageRepo exemption.UsageRepository,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		Cache:              cache,
		JurisdictionRepo:   jurisdictionRepo,
		TaxCategoryRepo:    taxCategoryRepo,
		TaxRateRepo:        taxRateRepo,
		TaxRateHistoryRepo: taxRateHistoryRepo,
		ExemptionRepo:      exemptionRepo,
		ExemptionUsageRepo: exemptionUsageRepo,
	}
}

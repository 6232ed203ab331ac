package repository

import (
	"go.uber.org/fx"
)

// Module provides all postgres-backed repositories
var Module = fx.Module("repository",
	fx.Provide(
		NewJurisdictionRepository,
		NewTaxCategoryRepository,
		NewTaxRateRepository,
		NewTaxRateHistoryRepository,
		NewExemptionRepository,
		NewExemptionUsageRepository,
	),
)

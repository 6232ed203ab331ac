package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/testutil"
	"github.com/voxbill/voxbill/internal/types"
)

type TaxRateServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  TaxRateService
	params   ServiceParams
	testData struct {
		jurisdiction *jurisdiction.TaxJurisdiction
		category     *taxcategory.TaxCategory
	}
}

func TestTaxRateService(t *testing.T) {
	suite.Run(t, new(TaxRateServiceSuite))
}

func (s *TaxRateServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.params = ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		Cache:              s.GetCache(),
		JurisdictionRepo:   s.GetStores().JurisdictionRepo,
		TaxCategoryRepo:    s.GetStores().TaxCategoryRepo,
		TaxRateRepo:        s.GetStores().TaxRateRepo,
		TaxRateHistoryRepo: s.GetStores().TaxRateHistoryRepo,
		ExemptionRepo:      s.GetStores().ExemptionRepo,
		ExemptionUsageRepo: s.GetStores().ExemptionUsageRepo,
	}
	s.service = NewTaxRateService(s.params)

	ctx := s.GetContext()
	s.testData.jurisdiction = &jurisdiction.TaxJurisdiction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JURISDICTION),
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().JurisdictionRepo.Create(ctx, s.testData.jurisdiction))

	s.testData.category = &taxcategory.TaxCategory{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_CATEGORY),
		Name:      "Telecommunications",
		Taxable:   true,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().TaxCategoryRepo.Create(ctx, s.testData.category))
}

func (s *TaxRateServiceSuite) newCreateRequest() *dto.CreateTaxRateRequest {
	return &dto.CreateTaxRateRequest{
		Name:           "TX State Sales Tax",
		Code:           "TX-SALES",
		JurisdictionID: s.testData.jurisdiction.ID,
		CategoryID:     s.testData.category.ID,
		TaxType:        types.TaxTypeStateSales,
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromFloat(6.25)),
	}
}

func (s *TaxRateServiceSuite) TestCreateTaxRateWritesHistory() {
	ctx := s.GetContext()

	resp, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)
	s.Require().NotNil(resp)
	s.Equal(types.TaxRateStatusActive, resp.TaxRateStatus)

	history, err := s.service.GetTaxRateHistory(ctx, resp.ID)
	s.NoError(err)
	s.Require().Len(history, 1)
	s.Equal(types.TaxRateChangeTypeCreated, history[0].ChangeType)
	s.Nil(history[0].OldValues)
	s.Require().NotNil(history[0].NewValues)
	s.Equal("TX-SALES", history[0].NewValues.Code)
}

func (s *TaxRateServiceSuite) TestCreateTaxRateUnknownJurisdiction() {
	req := s.newCreateRequest()
	req.JurisdictionID = "jur_missing"

	_, err := s.service.CreateTaxRate(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *TaxRateServiceSuite) TestCreateTieredRateRejectsBadTiers() {
	req := s.newCreateRequest()
	req.RateType = types.TaxRateTypeTiered
	req.PercentageRate = nil
	req.Tiers = []taxrate.RateTier{
		{LowerBound: decimal.Zero, UpperBound: lo.ToPtr(decimal.NewFromInt(100)), Rate: decimal.NewFromInt(2)},
		// gap between 100 and 150
		{LowerBound: decimal.NewFromInt(150), Rate: decimal.NewFromInt(4)},
	}

	_, err := s.service.CreateTaxRate(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// nothing was persisted
	rates, lerr := s.GetStores().TaxRateRepo.ListAll(s.GetContext(), nil)
	s.NoError(lerr)
	s.Empty(rates)
}

func (s *TaxRateServiceSuite) TestUpdateTaxRateWritesHistory() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	updated, err := s.service.UpdateTaxRate(ctx, created.ID, &dto.UpdateTaxRateRequest{
		PercentageRate: lo.ToPtr(decimal.NewFromFloat(7.25)),
		Reason:         "rate change 2026",
	})
	s.NoError(err)
	s.True(updated.PercentageRate.Equal(decimal.NewFromFloat(7.25)))

	history, err := s.service.GetTaxRateHistory(ctx, created.ID)
	s.NoError(err)
	s.Require().Len(history, 2)

	// newest first
	s.Equal(types.TaxRateChangeTypeUpdated, history[0].ChangeType)
	s.Equal("rate change 2026", history[0].Reason)
	s.Require().NotNil(history[0].OldValues)
	s.True(history[0].OldValues.PercentageRate.Equal(decimal.NewFromFloat(6.25)))
	s.True(history[0].NewValues.PercentageRate.Equal(decimal.NewFromFloat(7.25)))
}

func (s *TaxRateServiceSuite) TestExpireTaxRate() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	expired, err := s.service.ExpireTaxRate(ctx, created.ID, &dto.ExpireTaxRateRequest{Reason: "superseded"})
	s.NoError(err)
	s.Require().NotNil(expired.EffectiveTo)
	s.Equal(types.TaxRateStatusExpired, expired.TaxRateStatus)

	history, err := s.service.GetTaxRateHistory(ctx, created.ID)
	s.NoError(err)
	s.Require().Len(history, 2)
	s.Equal(types.TaxRateChangeTypeExpired, history[0].ChangeType)
}

func (s *TaxRateServiceSuite) TestScheduleTaxRateChange() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	effectiveFrom := time.Now().UTC().AddDate(0, 1, 0)
	newRate := s.newCreateRequest()
	newRate.Code = "TX-SALES-V2"
	newRate.PercentageRate = lo.ToPtr(decimal.NewFromFloat(8.25))

	replacement, err := s.service.ScheduleTaxRateChange(ctx, created.ID, &dto.ScheduleTaxRateChangeRequest{
		EffectiveFrom: effectiveFrom,
		NewRate:       newRate,
		Reason:        "legislated increase",
	})
	s.NoError(err)
	s.NotEqual(created.ID, replacement.ID)
	s.Require().NotNil(replacement.EffectiveFrom)
	s.True(replacement.EffectiveFrom.Equal(effectiveFrom))

	// the current rate is end-dated at the same instant
	current, err := s.service.GetTaxRate(ctx, created.ID)
	s.NoError(err)
	s.Require().NotNil(current.EffectiveTo)
	s.True(current.EffectiveTo.Equal(effectiveFrom))

	// both sides of the change carry history
	oldHistory, err := s.service.GetTaxRateHistory(ctx, created.ID)
	s.NoError(err)
	s.Len(oldHistory, 2)
	s.Equal(types.TaxRateChangeTypeScheduled, oldHistory[0].ChangeType)

	newHistory, err := s.service.GetTaxRateHistory(ctx, replacement.ID)
	s.NoError(err)
	s.Require().Len(newHistory, 1)
	s.Equal(types.TaxRateChangeTypeScheduled, newHistory[0].ChangeType)
}

func (s *TaxRateServiceSuite) TestScheduledChangeHandoverAtBoundary() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	effectiveFrom := time.Now().UTC().AddDate(0, 1, 0)
	newRate := s.newCreateRequest()
	newRate.Code = "TX-SALES-V2"
	newRate.PercentageRate = lo.ToPtr(decimal.NewFromFloat(8.25))

	replacement, err := s.service.ScheduleTaxRateChange(ctx, created.ID, &dto.ScheduleTaxRateChangeRequest{
		EffectiveFrom: effectiveFrom,
		NewRate:       newRate,
		Reason:        "legislated increase",
	})
	s.NoError(err)

	resolver := NewRateResolver(s.params)
	jurisdictionIDs := []string{s.testData.jurisdiction.ID}

	// exactly at the changeover instant only the replacement applies
	atBoundary, err := resolver.ResolveRates(ctx, jurisdictionIDs, s.testData.category.ID, "", effectiveFrom)
	s.NoError(err)
	s.Require().Len(atBoundary, 1)
	s.Equal(replacement.ID, atBoundary[0].ID)

	// any instant before the changeover still resolves the outgoing rate
	beforeBoundary, err := resolver.ResolveRates(ctx, jurisdictionIDs, s.testData.category.ID, "", effectiveFrom.Add(-time.Nanosecond))
	s.NoError(err)
	s.Require().Len(beforeBoundary, 1)
	s.Equal(created.ID, beforeBoundary[0].ID)
}

func (s *TaxRateServiceSuite) TestScheduleRejectsPastEffectiveFrom() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	_, err = s.service.ScheduleTaxRateChange(ctx, created.ID, &dto.ScheduleTaxRateChangeRequest{
		EffectiveFrom: time.Now().UTC().AddDate(0, 0, -1),
		NewRate:       s.newCreateRequest(),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *TaxRateServiceSuite) TestBulkImportTaxRates() {
	ctx := s.GetContext()

	req := &dto.BulkImportTaxRatesRequest{Reason: "initial load"}
	for _, code := range []string{"TX-A", "TX-B", "TX-C"} {
		r := s.newCreateRequest()
		r.Code = code
		req.Rates = append(req.Rates, *r)
	}

	resp, err := s.service.BulkImportTaxRates(ctx, req)
	s.NoError(err)
	s.Equal(3, resp.Imported)
	s.Len(resp.Rates, 3)

	for _, rate := range resp.Rates {
		history, herr := s.service.GetTaxRateHistory(ctx, rate.ID)
		s.NoError(herr)
		s.Require().Len(history, 1)
		s.Equal(types.TaxRateChangeTypeImported, history[0].ChangeType)
		s.Equal("initial load", history[0].Reason)
	}
}

func (s *TaxRateServiceSuite) TestExportAndRestore() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	export, err := s.service.ExportTaxRates(ctx, nil)
	s.NoError(err)
	s.Require().Len(export.Rates, 1)
	s.False(export.ExportedAt.IsZero())

	restored, err := s.service.RestoreTaxRates(ctx, &dto.RestoreTaxRatesRequest{
		Export: export,
		Reason: "disaster recovery drill",
	})
	s.NoError(err)
	s.Equal(1, restored.Imported)

	// restores never reuse the exported row's identity
	s.NotEqual(created.ID, restored.Rates[0].ID)
	s.Equal(created.Code, restored.Rates[0].Code)

	history, err := s.service.GetTaxRateHistory(ctx, restored.Rates[0].ID)
	s.NoError(err)
	s.Require().Len(history, 1)
	s.Equal(types.TaxRateChangeTypeRestored, history[0].ChangeType)
}

func (s *TaxRateServiceSuite) TestGetTaxRateByCode() {
	ctx := s.GetContext()

	created, err := s.service.CreateTaxRate(ctx, s.newCreateRequest())
	s.NoError(err)

	found, err := s.service.GetTaxRateByCode(ctx, "TX-SALES")
	s.NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = s.service.GetTaxRateByCode(ctx, "MISSING")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

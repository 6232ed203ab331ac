package service

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/testutil"
	"github.com/voxbill/voxbill/internal/types"
)

type TaxCalculationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service             TaxCalculationService
	jurisdictionService JurisdictionService
	taxCategoryService  TaxCategoryService
	exemptionService    ExemptionService
	params              ServiceParams
	testData            struct {
		jurisdictions struct {
			federal *jurisdiction.TaxJurisdiction
			texas   *jurisdiction.TaxJurisdiction
			austin  *jurisdiction.TaxJurisdiction
		}
		categories struct {
			telecom  *taxcategory.TaxCategory
			internet *taxcategory.TaxCategory
		}
		rates struct {
			txSales *taxrate.TaxRate
		}
		now time.Time
	}
}

func TestTaxCalculationService(t *testing.T) {
	suite.Run(t, new(TaxCalculationServiceSuite))
}

func (s *TaxCalculationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *TaxCalculationServiceSuite) setupService() {
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

	s.jurisdictionService = NewJurisdictionService(s.params)
	s.taxCategoryService = NewTaxCategoryService(s.params)
	s.exemptionService = NewExemptionService(s.params)
	s.service = NewTaxCalculationService(
		s.params,
		s.jurisdictionService,
		s.taxCategoryService,
		s.exemptionService,
		NewRateResolver(s.params),
		NewUSFRateProvider(s.params),
	)
}

func (s *TaxCalculationServiceSuite) setupTestData() {
	ctx := s.GetContext()
	s.testData.now = time.Now().UTC()

	s.testData.jurisdictions.federal = &jurisdiction.TaxJurisdiction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JURISDICTION),
		Name:             "United States",
		AuthorityName:    "Internal Revenue Service",
		JurisdictionType: types.JurisdictionTypeFederal,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	s.testData.jurisdictions.texas = &jurisdiction.TaxJurisdiction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JURISDICTION),
		Name:             "Texas",
		AuthorityName:    "Texas Comptroller",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	s.testData.jurisdictions.austin = &jurisdiction.TaxJurisdiction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JURISDICTION),
		Name:             "City of Austin",
		AuthorityName:    "City of Austin",
		JurisdictionType: types.JurisdictionTypeCity,
		CityName:         "Austin",
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().JurisdictionRepo.Create(ctx, s.testData.jurisdictions.federal))
	s.NoError(s.GetStores().JurisdictionRepo.Create(ctx, s.testData.jurisdictions.texas))
	s.NoError(s.GetStores().JurisdictionRepo.Create(ctx, s.testData.jurisdictions.austin))

	s.testData.categories.telecom = &taxcategory.TaxCategory{
		ID:   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_CATEGORY),
		Name: "Telecommunications",
		ServiceTypes: []string{
			types.ServiceTypeLocal,
			types.ServiceTypeLongDistance,
			types.ServiceTypeVoIPFixed,
			types.ServiceTypeVoIPNomadic,
		},
		Taxable:   true,
		Priority:  1,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	s.testData.categories.internet = &taxcategory.TaxCategory{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_CATEGORY),
		Name:         "Internet Access",
		ServiceTypes: []string{types.ServiceTypeInternet},
		Taxable:      false,
		Priority:     2,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().TaxCategoryRepo.Create(ctx, s.testData.categories.telecom))
	s.NoError(s.GetStores().TaxCategoryRepo.Create(ctx, s.testData.categories.internet))

	s.testData.rates.txSales = &taxrate.TaxRate{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE),
		Name:           "TX State Sales Tax",
		Code:           "TX-SALES",
		JurisdictionID: s.testData.jurisdictions.texas.ID,
		CategoryID:     s.testData.categories.telecom.ID,
		TaxType:        types.TaxTypeStateSales,
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromFloat(6.25)),
		AuthorityName:  "Texas Comptroller",
		Priority:       10,
		TaxRateStatus:  types.TaxRateStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().TaxRateRepo.Create(ctx, s.testData.rates.txSales))
}

func (s *TaxCalculationServiceSuite) TestFederalOnlyWithoutAddress() {
	resp, err := s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.NoError(err)
	s.Require().NotNil(resp)

	s.Len(resp.FederalTaxes, 2)
	s.Empty(resp.StateTaxes)
	s.Empty(resp.LocalTaxes)

	var exciseAmount, usfAmount decimal.Decimal
	for _, line := range resp.FederalTaxes {
		switch line.TaxType {
		case types.TaxTypeFederalExcise:
			exciseAmount = line.TaxAmount
		case types.TaxTypeUSF:
			usfAmount = line.TaxAmount
		}
	}
	s.True(exciseAmount.Equal(decimal.NewFromInt(3)), "excise %s", exciseAmount)
	s.True(usfAmount.Equal(decimal.NewFromFloat(34.4)), "usf %s", usfAmount)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromFloat(37.40)), "total %s", resp.TotalTaxAmount)
	s.True(resp.FinalAmount.Equal(decimal.NewFromFloat(137.40)), "final %s", resp.FinalAmount)
	s.False(resp.IsFallback)
	s.Contains(resp.Jurisdictions, "United States")
}

func (s *TaxCalculationServiceSuite) TestFederalExciseMinimumBase() {
	// at exactly the minimum base the excise does not apply
	resp, err := s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromFloat(0.20),
		ServiceType: types.ServiceTypeLocal,
	})
	s.NoError(err)
	for _, line := range resp.FederalTaxes {
		s.NotEqual(types.TaxTypeFederalExcise, line.TaxType)
	}

	// strictly above it does
	resp, err = s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromFloat(0.21),
		ServiceType: types.ServiceTypeLocal,
	})
	s.NoError(err)
	taxTypes := make([]string, 0, len(resp.FederalTaxes))
	for _, line := range resp.FederalTaxes {
		taxTypes = append(taxTypes, line.TaxType)
	}
	s.Contains(taxTypes, types.TaxTypeFederalExcise)
}

func (s *TaxCalculationServiceSuite) TestStateRateAppliedWithAddress() {
	resp, err := s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		Address:     &dto.ServiceAddress{State: "TX", City: "Dallas"},
	})
	s.NoError(err)

	s.Require().Len(resp.StateTaxes, 1)
	s.Equal("TX State Sales Tax", resp.StateTaxes[0].TaxName)
	s.True(resp.StateTaxes[0].TaxAmount.Equal(decimal.NewFromFloat(6.25)), "state %s", resp.StateTaxes[0].TaxAmount)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromFloat(43.65)), "total %s", resp.TotalTaxAmount)
	s.True(resp.FinalAmount.Equal(decimal.NewFromFloat(143.65)), "final %s", resp.FinalAmount)
	s.Contains(resp.Jurisdictions, "Texas")
	s.NotContains(resp.Jurisdictions, "City of Austin")
}

func (s *TaxCalculationServiceSuite) TestCatalogRateSuppressesBuiltinUSF() {
	ctx := s.GetContext()
	override := &taxrate.TaxRate{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE),
		Name:           "USF Contribution",
		Code:           "USF-Q3",
		JurisdictionID: s.testData.jurisdictions.federal.ID,
		CategoryID:     s.testData.categories.telecom.ID,
		TaxType:        types.TaxTypeUSF,
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromInt(30)),
		AuthorityName:  "Federal Communications Commission",
		Priority:       1,
		TaxRateStatus:  types.TaxRateStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().TaxRateRepo.Create(ctx, override))

	resp, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.NoError(err)

	usfLines := 0
	for _, line := range resp.FederalTaxes {
		if line.TaxType == types.TaxTypeUSF {
			usfLines++
			s.True(line.TaxAmount.Equal(decimal.NewFromInt(30)), "usf %s", line.TaxAmount)
		}
	}
	s.Equal(1, usfLines)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromInt(33)), "total %s", resp.TotalTaxAmount)
}

func (s *TaxCalculationServiceSuite) TestExemptionReducesMatchingLines() {
	ctx := s.GetContext()
	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_1",
		ApplicableTaxTypes:  []string{types.TaxTypeStateSales},
		ExemptionPercentage: decimal.NewFromInt(50),
		ExemptionStatus:     types.ExemptionStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	resp, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		Address:     &dto.ServiceAddress{State: "TX"},
		ClientID:    "cust_1",
	})
	s.NoError(err)

	s.Require().Len(resp.StateTaxes, 1)
	s.True(resp.StateTaxes[0].TaxAmount.Equal(decimal.NewFromFloat(3.125)), "state %s", resp.StateTaxes[0].TaxAmount)
	s.True(resp.StateTaxes[0].ExemptedAmount.Equal(decimal.NewFromFloat(3.125)), "exempt %s", resp.StateTaxes[0].ExemptedAmount)
	s.Contains(resp.ExemptionsApplied, exm.ID)

	// federal lines carry no state exemption
	for _, line := range resp.FederalTaxes {
		s.True(line.ExemptedAmount.IsZero())
	}
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromFloat(40.53)), "total %s", resp.TotalTaxAmount)
}

func (s *TaxCalculationServiceSuite) TestCityRateStacksWithStateExemption() {
	ctx := s.GetContext()
	cityRate := &taxrate.TaxRate{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE),
		Name:           "Austin Telecom Tax",
		Code:           "ATX-TEL",
		JurisdictionID: s.testData.jurisdictions.austin.ID,
		CategoryID:     s.testData.categories.telecom.ID,
		TaxType:        types.TaxTypeCityTax,
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromInt(2)),
		AuthorityName:  "City of Austin",
		Priority:       20,
		TaxRateStatus:  types.TaxRateStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().TaxRateRepo.Create(ctx, cityRate))

	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_atx",
		ApplicableTaxTypes:  []string{types.TaxTypeStateSales},
		ExemptionPercentage: decimal.NewFromInt(50),
		ExemptionStatus:     types.ExemptionStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	resp, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		Address:     &dto.ServiceAddress{State: "TX", City: "Austin"},
		ClientID:    "cust_atx",
	})
	s.NoError(err)

	// the state-only exemption halves the state line and nothing else
	s.Require().Len(resp.StateTaxes, 1)
	s.True(resp.StateTaxes[0].TaxAmount.Equal(decimal.NewFromFloat(3.125)), "state %s", resp.StateTaxes[0].TaxAmount)
	s.True(resp.StateTaxes[0].ExemptedAmount.Equal(decimal.NewFromFloat(3.125)), "exempt %s", resp.StateTaxes[0].ExemptedAmount)

	s.Require().Len(resp.LocalTaxes, 1)
	s.Equal("Austin Telecom Tax", resp.LocalTaxes[0].TaxName)
	s.True(resp.LocalTaxes[0].TaxAmount.Equal(decimal.NewFromInt(2)), "city %s", resp.LocalTaxes[0].TaxAmount)
	s.True(resp.LocalTaxes[0].ExemptedAmount.IsZero())

	for _, line := range resp.FederalTaxes {
		s.True(line.ExemptedAmount.IsZero())
	}

	// 3 excise + 34.4 usf + 3.125 state + 2 city
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromFloat(42.53)), "total %s", resp.TotalTaxAmount)
	s.True(resp.FinalAmount.Equal(decimal.NewFromFloat(142.53)), "final %s", resp.FinalAmount)
	s.Contains(resp.Jurisdictions, "Texas")
	s.Contains(resp.Jurisdictions, "City of Austin")
	s.Equal([]string{exm.ID}, resp.ExemptionsApplied)
}

func (s *TaxCalculationServiceSuite) TestBlanketExemptionZeroesEverything() {
	ctx := s.GetContext()
	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_gov",
		IsBlanketExemption:  true,
		ExemptionPercentage: decimal.NewFromInt(100),
		ExemptionStatus:     types.ExemptionStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	resp, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		Address:     &dto.ServiceAddress{State: "TX"},
		ClientID:    "cust_gov",
	})
	s.NoError(err)

	s.True(resp.TotalTaxAmount.IsZero(), "total %s", resp.TotalTaxAmount)
	s.True(resp.FinalAmount.Equal(decimal.NewFromInt(100)), "final %s", resp.FinalAmount)
	for _, line := range resp.FederalTaxes {
		s.True(line.TaxAmount.IsZero())
		s.False(line.ExemptedAmount.IsZero())
	}
}

func (s *TaxCalculationServiceSuite) TestExpiredExemptionIgnored() {
	ctx := s.GetContext()
	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_2",
		IsBlanketExemption:  true,
		ExemptionPercentage: decimal.NewFromInt(100),
		ExemptionStatus:     types.ExemptionStatusActive,
		ExpiresAt:           lo.ToPtr(s.testData.now.AddDate(0, 0, -1)),
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	resp, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		ClientID:    "cust_2",
	})
	s.NoError(err)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromFloat(37.40)), "total %s", resp.TotalTaxAmount)
	s.Empty(resp.ExemptionsApplied)
}

func (s *TaxCalculationServiceSuite) TestUntaxedServiceTypeYieldsZero() {
	resp, err := s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeInternet,
		Address:     &dto.ServiceAddress{State: "TX"},
	})
	s.NoError(err)

	s.Empty(resp.FederalTaxes)
	s.Empty(resp.StateTaxes)
	s.Empty(resp.LocalTaxes)
	s.True(resp.TotalTaxAmount.IsZero())
	s.True(resp.FinalAmount.Equal(decimal.NewFromInt(100)))
}

func (s *TaxCalculationServiceSuite) TestPreviewServedFromCache() {
	ctx := s.GetContext()
	req := &dto.CalculateTaxRequest{
		Amount:          decimal.NewFromInt(100),
		ServiceType:     types.ServiceTypeVoIPFixed,
		Address:         &dto.ServiceAddress{State: "TX"},
		CalculationDate: lo.ToPtr(s.testData.now),
	}

	first, err := s.service.CalculateTax(ctx, req)
	s.NoError(err)
	s.True(first.TotalTaxAmount.Equal(decimal.NewFromFloat(43.65)))

	// archive the state rate; the identical preview still sees the cached
	// breakdown
	s.NoError(s.GetStores().TaxRateRepo.Delete(ctx, s.testData.rates.txSales))

	second, err := s.service.CalculateTax(ctx, req)
	s.NoError(err)
	s.True(second.TotalTaxAmount.Equal(decimal.NewFromFloat(43.65)), "total %s", second.TotalTaxAmount)

	// a document-bound request bypasses the cache and recomputes
	bound := *req
	bound.ReferenceType = "invoice"
	bound.ReferenceID = "inv_123"
	third, err := s.service.CalculateTax(ctx, &bound)
	s.NoError(err)
	s.True(third.TotalTaxAmount.Equal(decimal.NewFromFloat(37.40)), "total %s", third.TotalTaxAmount)
}

func (s *TaxCalculationServiceSuite) TestExemptionUsageRecordedOnce() {
	ctx := s.GetContext()
	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_1",
		ApplicableTaxTypes:  []string{types.TaxTypeStateSales},
		ExemptionPercentage: decimal.NewFromInt(50),
		ExemptionStatus:     types.ExemptionStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	req := &dto.CalculateTaxRequest{
		Amount:        decimal.NewFromInt(100),
		ServiceType:   types.ServiceTypeVoIPFixed,
		Address:       &dto.ServiceAddress{State: "TX"},
		ClientID:      "cust_1",
		ReferenceType: "invoice",
		ReferenceID:   "inv_42",
	}

	_, err := s.service.CalculateTax(ctx, req)
	s.NoError(err)

	// replaying the same document is a no-op on the usage log
	_, err = s.service.CalculateTax(ctx, req)
	s.NoError(err)

	usages, err := s.GetStores().ExemptionUsageRepo.ListByReference(ctx, "invoice", "inv_42")
	s.NoError(err)
	s.Require().Len(usages, 1)
	s.Equal(exm.ID, usages[0].ExemptionID)
	s.Equal(types.TaxTypeStateSales, usages[0].LineRef)
	s.True(usages[0].Reduction.Equal(decimal.NewFromFloat(3.125)), "reduction %s", usages[0].Reduction)
}

func (s *TaxCalculationServiceSuite) TestPreviewRecordsNoUsage() {
	ctx := s.GetContext()
	exm := &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            "cust_1",
		ApplicableTaxTypes:  []string{types.TaxTypeStateSales},
		ExemptionPercentage: decimal.NewFromInt(50),
		ExemptionStatus:     types.ExemptionStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ExemptionRepo.Create(ctx, exm))

	_, err := s.service.CalculateTax(ctx, &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
		Address:     &dto.ServiceAddress{State: "TX"},
		ClientID:    "cust_1",
	})
	s.NoError(err)

	usages, err := s.GetStores().ExemptionUsageRepo.ListByExemption(ctx, exm.ID)
	s.NoError(err)
	s.Empty(usages)
}

func (s *TaxCalculationServiceSuite) TestFallbackWhenCatalogUnavailable() {
	params := s.params
	params.JurisdictionRepo = &failingJurisdictionRepo{}

	svc := NewTaxCalculationService(
		params,
		NewJurisdictionService(params),
		NewTaxCategoryService(params),
		NewExemptionService(params),
		NewRateResolver(params),
		NewUSFRateProvider(params),
	)

	resp, err := svc.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.NoError(err)
	s.Require().NotNil(resp)

	s.True(resp.IsFallback)
	s.Require().Len(resp.FederalTaxes, 1)
	s.Equal("Estimated Tax", resp.FederalTaxes[0].TaxName)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromInt(5)), "total %s", resp.TotalTaxAmount)
	s.True(resp.FinalAmount.Equal(decimal.NewFromInt(105)), "final %s", resp.FinalAmount)
}

func (s *TaxCalculationServiceSuite) TestFallbackWhenUSFProviderUnavailable() {
	svc := NewTaxCalculationService(
		s.params,
		s.jurisdictionService,
		s.taxCategoryService,
		s.exemptionService,
		NewRateResolver(s.params),
		&unavailableUSFProvider{},
	)

	resp, err := svc.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.NoError(err)
	s.Require().NotNil(resp)

	s.True(resp.IsFallback)
	s.Require().Len(resp.FederalTaxes, 1)
	s.Equal("Estimated Tax", resp.FederalTaxes[0].TaxName)
	s.True(resp.TotalTaxAmount.Equal(decimal.NewFromInt(5)), "total %s", resp.TotalTaxAmount)
}

func (s *TaxCalculationServiceSuite) TestMissingTenantContextRejected() {
	_, err := s.service.CalculateTax(context.Background(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(100),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *TaxCalculationServiceSuite) TestNegativeAmountRejected() {
	_, err := s.service.CalculateTax(s.GetContext(), &dto.CalculateTaxRequest{
		Amount:      decimal.NewFromInt(-1),
		ServiceType: types.ServiceTypeVoIPFixed,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

// failingJurisdictionRepo simulates an unreachable rate catalog
type failingJurisdictionRepo struct{}

func (r *failingJurisdictionRepo) dbError() error {
	return ierr.NewError("connection refused").
		WithHint("Failed to query jurisdictions").
		Mark(ierr.ErrDatabase)
}

func (r *failingJurisdictionRepo) Create(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	return r.dbError()
}

func (r *failingJurisdictionRepo) Get(ctx context.Context, id string) (*jurisdiction.TaxJurisdiction, error) {
	return nil, r.dbError()
}

func (r *failingJurisdictionRepo) List(ctx context.Context, filter *types.JurisdictionFilter) ([]*jurisdiction.TaxJurisdiction, error) {
	return nil, r.dbError()
}

func (r *failingJurisdictionRepo) Count(ctx context.Context, filter *types.JurisdictionFilter) (int, error) {
	return 0, r.dbError()
}

func (r *failingJurisdictionRepo) Update(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	return r.dbError()
}

func (r *failingJurisdictionRepo) Delete(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	return r.dbError()
}

// unavailableUSFProvider simulates an unreachable contribution factor source
type unavailableUSFProvider struct{}

func (p *unavailableUSFProvider) GetRate(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	return decimal.Zero, ierr.NewError("contribution factor lookup failed").
		WithHint("USF rate source unavailable").
		Mark(ierr.ErrDependency)
}

package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/testutil"
	"github.com/voxbill/voxbill/internal/types"
)

type ExemptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ExemptionService
}

func TestExemptionService(t *testing.T) {
	suite.Run(t, new(ExemptionServiceSuite))
}

func (s *ExemptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.service = NewExemptionService(ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		Cache:              s.GetCache(),
		ExemptionRepo:      s.GetStores().ExemptionRepo,
		ExemptionUsageRepo: s.GetStores().ExemptionUsageRepo,
	})
}

func (s *ExemptionServiceSuite) create(req *dto.CreateExemptionRequest) *dto.ExemptionResponse {
	resp, err := s.service.CreateExemption(s.GetContext(), req)
	s.NoError(err)
	s.Require().NotNil(resp)
	return resp
}

func (s *ExemptionServiceSuite) TestCreateDefaultsToFullExemption() {
	created := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		ApplicableTaxTypes: []string{types.TaxTypeStateSales},
	})
	s.True(created.ExemptionPercentage.Equal(decimal.NewFromInt(100)),
		"got %s", created.ExemptionPercentage)
	s.Equal(types.ExemptionStatusActive, created.ExemptionStatus)
}

func (s *ExemptionServiceSuite) TestCreateRejectsPercentageOutOfRange() {
	_, err := s.service.CreateExemption(s.GetContext(), &dto.CreateExemptionRequest{
		ClientID:            "client_1",
		ExemptionPercentage: lo.ToPtr(decimal.NewFromInt(150)),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ExemptionServiceSuite) TestMatchExemptionsFiltersByClientAndValidity() {
	active := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		ApplicableTaxTypes: []string{types.TaxTypeStateSales},
		Priority:           2,
	})
	first := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		IsBlanketExemption: true,
		Priority:           1,
	})
	s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		ApplicableTaxTypes: []string{types.TaxTypeUSF},
		ExpiresAt:          lo.ToPtr(time.Now().UTC().AddDate(0, 0, -1)),
	})
	s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_2",
		IsBlanketExemption: true,
	})

	matched, err := s.service.MatchExemptions(s.GetContext(), "client_1", time.Now().UTC())
	s.NoError(err)
	s.Require().Len(matched, 2)
	s.Equal(first.ID, matched[0].ID)
	s.Equal(active.ID, matched[1].ID)
}

func (s *ExemptionServiceSuite) TestMatchExemptionsEmptyClientMatchesNothing() {
	s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		IsBlanketExemption: true,
	})

	matched, err := s.service.MatchExemptions(s.GetContext(), "", time.Now().UTC())
	s.NoError(err)
	s.Empty(matched)
}

func (s *ExemptionServiceSuite) TestPendingVerificationExemptionNotMatched() {
	created := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		IsBlanketExemption: true,
	})

	_, err := s.service.UpdateExemption(s.GetContext(), created.ID, &dto.UpdateExemptionRequest{
		ExemptionStatus: lo.ToPtr(types.ExemptionStatusPendingVerification),
	})
	s.NoError(err)

	matched, err := s.service.MatchExemptions(s.GetContext(), "client_1", time.Now().UTC())
	s.NoError(err)
	s.Empty(matched)
}

func (s *ExemptionServiceSuite) TestRecordUsageIsIdempotent() {
	created := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		ApplicableTaxTypes: []string{types.TaxTypeStateSales},
	})

	usage := func() *exemption.TaxExemptionUsage {
		return &exemption.TaxExemptionUsage{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION_USAGE),
			ExemptionID:   created.ID,
			ReferenceType: "invoice",
			ReferenceID:   "inv_1001",
			LineRef:       types.TaxTypeStateSales,
			TaxType:       types.TaxTypeStateSales,
			TaxBefore:     decimal.NewFromFloat(6.25),
			Reduction:     decimal.NewFromFloat(6.25),
			AppliedAt:     time.Now().UTC(),
			BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
		}
	}

	s.NoError(s.service.RecordUsage(s.GetContext(), usage()))
	s.NoError(s.service.RecordUsage(s.GetContext(), usage()))

	rows, err := s.service.ListUsageByExemption(s.GetContext(), created.ID)
	s.NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("inv_1001", rows[0].ReferenceID)
	s.True(rows[0].Reduction.Equal(decimal.NewFromFloat(6.25)))
}

func (s *ExemptionServiceSuite) TestListUsageByReference() {
	created := s.create(&dto.CreateExemptionRequest{
		ClientID:           "client_1",
		IsBlanketExemption: true,
	})

	for _, ref := range []string{"inv_1", "inv_2"} {
		s.NoError(s.service.RecordUsage(s.GetContext(), &exemption.TaxExemptionUsage{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION_USAGE),
			ExemptionID:   created.ID,
			ReferenceType: "invoice",
			ReferenceID:   ref,
			LineRef:       types.TaxTypeFederalExcise,
			TaxType:       types.TaxTypeFederalExcise,
			TaxBefore:     decimal.NewFromInt(3),
			Reduction:     decimal.NewFromInt(3),
			AppliedAt:     time.Now().UTC(),
			BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
		}))
	}

	rows, err := s.service.ListUsageByReference(s.GetContext(), "invoice", "inv_2")
	s.NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(created.ID, rows[0].ExemptionID)
}

func (s *ExemptionServiceSuite) TestExemptionCoverageHelpers() {
	jurisdictionID := "jur_tx"
	scoped := &exemption.TaxExemption{
		ClientID:           "client_1",
		JurisdictionID:     &jurisdictionID,
		ApplicableTaxTypes: []string{types.TaxTypeStateSales},
	}
	s.True(scoped.AppliesToTaxType(types.TaxTypeStateSales))
	s.False(scoped.AppliesToTaxType(types.TaxTypeUSF))
	s.True(scoped.AppliesToJurisdiction("jur_tx"))
	s.False(scoped.AppliesToJurisdiction("jur_ca"))

	blanket := &exemption.TaxExemption{ClientID: "client_1", IsBlanketExemption: true}
	s.True(blanket.AppliesToTaxType(types.TaxTypeUSF))
	s.True(blanket.AppliesToJurisdiction("anything"))
}

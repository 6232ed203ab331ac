package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/testutil"
	"github.com/voxbill/voxbill/internal/types"
)

type JurisdictionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service JurisdictionService
}

func TestJurisdictionService(t *testing.T) {
	suite.Run(t, new(JurisdictionServiceSuite))
}

func (s *JurisdictionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.service = NewJurisdictionService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Cache:            s.GetCache(),
		JurisdictionRepo: s.GetStores().JurisdictionRepo,
	})
}

func (s *JurisdictionServiceSuite) create(req *dto.CreateJurisdictionRequest) *dto.JurisdictionResponse {
	resp, err := s.service.CreateJurisdiction(s.GetContext(), req)
	s.NoError(err)
	s.Require().NotNil(resp)
	return resp
}

func (s *JurisdictionServiceSuite) TestCreateAndGetJurisdiction() {
	created := s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		AuthorityName:    "Texas Comptroller",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	got, err := s.service.GetJurisdiction(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("Texas", got.Name)
	s.Equal(types.JurisdictionTypeState, got.JurisdictionType)
}

func (s *JurisdictionServiceSuite) TestCreateRejectsUnknownType() {
	_, err := s.service.CreateJurisdiction(s.GetContext(), &dto.CreateJurisdictionRequest{
		Name:             "Nowhere",
		JurisdictionType: types.JurisdictionType("galactic"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *JurisdictionServiceSuite) TestDeleteHidesJurisdiction() {
	created := s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	s.NoError(s.service.DeleteJurisdiction(s.GetContext(), created.ID))

	_, err := s.service.GetJurisdiction(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *JurisdictionServiceSuite) TestResolveOrdersBroadestFirst() {
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "City of Austin",
		JurisdictionType: types.JurisdictionTypeCity,
		CityName:         "Austin",
	})
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "Travis County",
		JurisdictionType: types.JurisdictionTypeCounty,
		CountyName:       "Travis",
	})
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "United States",
		JurisdictionType: types.JurisdictionTypeFederal,
	})
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	resolved, err := s.service.ResolveJurisdictions(s.GetContext(), &jurisdiction.Address{
		State:  "TX",
		County: "Travis",
		City:   "Austin",
	})
	s.NoError(err)
	s.Require().Len(resolved, 4)

	names := lo.Map(resolved, func(j *jurisdiction.TaxJurisdiction, _ int) string {
		return j.Name
	})
	s.Equal([]string{"United States", "Texas", "Travis County", "City of Austin"}, names)
}

func (s *JurisdictionServiceSuite) TestResolveNilAddressIsFederalOnly() {
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "United States",
		JurisdictionType: types.JurisdictionTypeFederal,
	})
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	resolved, err := s.service.ResolveJurisdictions(s.GetContext(), nil)
	s.NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal("United States", resolved[0].Name)
}

func (s *JurisdictionServiceSuite) TestResolveMatchesZipCode() {
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "Downtown District",
		JurisdictionType: types.JurisdictionTypeSpecialDistrict,
		ZipCodes:         []string{"78701", "78702"},
	})

	resolved, err := s.service.ResolveJurisdictions(s.GetContext(), &jurisdiction.Address{Zip: "78701"})
	s.NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal("Downtown District", resolved[0].Name)

	resolved, err = s.service.ResolveJurisdictions(s.GetContext(), &jurisdiction.Address{Zip: "78799"})
	s.NoError(err)
	s.Empty(resolved)
}

func (s *JurisdictionServiceSuite) TestResolveMatchingIsCaseInsensitive() {
	s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	resolved, err := s.service.ResolveJurisdictions(s.GetContext(), &jurisdiction.Address{State: "tx"})
	s.NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal("Texas", resolved[0].Name)
}

func (s *JurisdictionServiceSuite) TestUpdateJurisdiction() {
	created := s.create(&dto.CreateJurisdictionRequest{
		Name:             "Texas",
		JurisdictionType: types.JurisdictionTypeState,
		StateCode:        "TX",
	})

	updated, err := s.service.UpdateJurisdiction(s.GetContext(), created.ID, &dto.UpdateJurisdictionRequest{
		AuthorityName: lo.ToPtr("Texas Comptroller of Public Accounts"),
		Priority:      lo.ToPtr(5),
	})
	s.NoError(err)
	s.Equal("Texas Comptroller of Public Accounts", updated.AuthorityName)
	s.Equal(5, updated.Priority)
	s.Equal("Texas", updated.Name)
}

package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/voxbill/voxbill/internal/api/dto"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/testutil"
	"github.com/voxbill/voxbill/internal/types"
)

type TaxCategoryServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TaxCategoryService
}

func TestTaxCategoryService(t *testing.T) {
	suite.Run(t, new(TaxCategoryServiceSuite))
}

func (s *TaxCategoryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.service = NewTaxCategoryService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetDB(),
		Cache:           s.GetCache(),
		TaxCategoryRepo: s.GetStores().TaxCategoryRepo,
	})
}

func (s *TaxCategoryServiceSuite) create(req *dto.CreateTaxCategoryRequest) *dto.TaxCategoryResponse {
	resp, err := s.service.CreateTaxCategory(s.GetContext(), req)
	s.NoError(err)
	s.Require().NotNil(resp)
	return resp
}

func (s *TaxCategoryServiceSuite) TestClassifyPicksHighestPriorityCategory() {
	s.create(&dto.CreateTaxCategoryRequest{
		Name:         "Telecommunications",
		ServiceTypes: []string{types.ServiceTypeLocal, types.ServiceTypeVoIPFixed},
		Priority:     10,
	})
	specific := s.create(&dto.CreateTaxCategoryRequest{
		Name:         "VoIP Services",
		ServiceTypes: []string{types.ServiceTypeVoIPFixed},
		Priority:     1,
	})

	category, err := s.service.ClassifyServiceType(s.GetContext(), types.ServiceTypeVoIPFixed)
	s.NoError(err)
	s.Require().NotNil(category)
	s.Equal(specific.ID, category.ID)

	category, err = s.service.ClassifyServiceType(s.GetContext(), types.ServiceTypeLocal)
	s.NoError(err)
	s.Require().NotNil(category)
	s.Equal("Telecommunications", category.Name)
}

func (s *TaxCategoryServiceSuite) TestClassifyUnknownServiceTypeIsUntaxed() {
	s.create(&dto.CreateTaxCategoryRequest{
		Name:         "Telecommunications",
		ServiceTypes: []string{types.ServiceTypeLocal},
	})

	category, err := s.service.ClassifyServiceType(s.GetContext(), "equipment_rental")
	s.NoError(err)
	s.Nil(category)
}

func (s *TaxCategoryServiceSuite) TestClassifyNonTaxableCategoryIsUntaxed() {
	s.create(&dto.CreateTaxCategoryRequest{
		Name:         "Internet Access",
		ServiceTypes: []string{types.ServiceTypeInternet},
		Taxable:      lo.ToPtr(false),
	})

	category, err := s.service.ClassifyServiceType(s.GetContext(), types.ServiceTypeInternet)
	s.NoError(err)
	s.Nil(category)
}

func (s *TaxCategoryServiceSuite) TestCatchAllCategoryMatchesAnything() {
	s.create(&dto.CreateTaxCategoryRequest{
		Name:     "General Services",
		Priority: 100,
	})

	category, err := s.service.ClassifyServiceType(s.GetContext(), "some_new_offering")
	s.NoError(err)
	s.Require().NotNil(category)
	s.Equal("General Services", category.Name)
}

func (s *TaxCategoryServiceSuite) TestUpdateTaxCategory() {
	created := s.create(&dto.CreateTaxCategoryRequest{
		Name:         "Telecommunications",
		ServiceTypes: []string{types.ServiceTypeLocal},
	})

	updated, err := s.service.UpdateTaxCategory(s.GetContext(), created.ID, &dto.UpdateTaxCategoryRequest{
		ServiceTypes: []string{types.ServiceTypeLocal, types.ServiceTypeLongDistance},
		Priority:     lo.ToPtr(3),
	})
	s.NoError(err)
	s.ElementsMatch([]string{types.ServiceTypeLocal, types.ServiceTypeLongDistance}, updated.ServiceTypes)
	s.Equal(3, updated.Priority)
}

func (s *TaxCategoryServiceSuite) TestDeleteHidesCategory() {
	created := s.create(&dto.CreateTaxCategoryRequest{
		Name:         "Telecommunications",
		ServiceTypes: []string{types.ServiceTypeLocal},
	})

	s.NoError(s.service.DeleteTaxCategory(s.GetContext(), created.ID))

	_, err := s.service.GetTaxCategory(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

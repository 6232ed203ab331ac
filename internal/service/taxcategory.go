package service

import (
	"context"
	"sort"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// TaxCategoryService manages tax categories and classifies service types
// into them.
type TaxCategoryService interface {
	CreateTaxCategory(ctx context.Context, req *dto.CreateTaxCategoryRequest) (*dto.TaxCategoryResponse, error)
	GetTaxCategory(ctx context.Context, id string) (*dto.TaxCategoryResponse, error)
	ListTaxCategories(ctx context.Context, filter *types.TaxCategoryFilter) (*dto.ListTaxCategoriesResponse, error)
	UpdateTaxCategory(ctx context.Context, id string, req *dto.UpdateTaxCategoryRequest) (*dto.TaxCategoryResponse, error)
	DeleteTaxCategory(ctx context.Context, id string) error

	// ClassifyServiceType returns the highest-priority category covering the
	// service type, or nil when no category matches or the matched category
	// is non-taxable. A nil classification means the charge is untaxed.
	ClassifyServiceType(ctx context.Context, serviceType string) (*taxcategory.TaxCategory, error)
}

type taxCategoryService struct {
	ServiceParams
}

// NewTaxCategoryService creates a new tax category service
func NewTaxCategoryService(params ServiceParams) TaxCategoryService {
	return &taxCategoryService{
		ServiceParams: params,
	}
}

func (s *taxCategoryService) CreateTaxCategory(ctx context.Context, req *dto.CreateTaxCategoryRequest) (*dto.TaxCategoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := req.ToTaxCategory(types.GetDefaultBaseModel(ctx))
	if err := s.TaxCategoryRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxCategoryResponse(c), nil
}

func (s *taxCategoryService) GetTaxCategory(ctx context.Context, id string) (*dto.TaxCategoryResponse, error) {
	if id == "" {
		return nil, ierr.NewError("tax category id is required").
			WithHint("Tax category ID is required").
			Mark(ierr.ErrValidation)
	}

	c, err := s.TaxCategoryRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToTaxCategoryResponse(c), nil
}

func (s *taxCategoryService) ListTaxCategories(ctx context.Context, filter *types.TaxCategoryFilter) (*dto.ListTaxCategoriesResponse, error) {
	if filter == nil {
		filter = types.NewDefaultTaxCategoryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	categories, err := s.TaxCategoryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.TaxCategoryRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TaxCategoryResponse, len(categories))
	for i, c := range categories {
		items[i] = dto.ToTaxCategoryResponse(c)
	}

	return &dto.ListTaxCategoriesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *taxCategoryService) UpdateTaxCategory(ctx context.Context, id string, req *dto.UpdateTaxCategoryRequest) (*dto.TaxCategoryResponse, error) {
	c, err := s.TaxCategoryRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.ServiceTypes != nil {
		c.ServiceTypes = req.ServiceTypes
	}
	if req.Taxable != nil {
		c.Taxable = *req.Taxable
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	c.UpdatedBy = types.GetUserID(ctx)

	if err := s.TaxCategoryRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxCategoryResponse(c), nil
}

func (s *taxCategoryService) DeleteTaxCategory(ctx context.Context, id string) error {
	c, err := s.TaxCategoryRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.TaxCategoryRepo.Delete(ctx, c); err != nil {
		return err
	}

	s.invalidateCalculations(ctx)
	return nil
}

func (s *taxCategoryService) ClassifyServiceType(ctx context.Context, serviceType string) (*taxcategory.TaxCategory, error) {
	filter := types.NewNoLimitTaxCategoryFilter()
	filter.ServiceType = serviceType

	categories, err := s.TaxCategoryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		s.Logger.Debugw("no tax category matches service type, treating as untaxed",
			"service_type", serviceType)
		return nil, nil
	}

	sort.SliceStable(categories, func(i, k int) bool {
		return categories[i].Priority < categories[k].Priority
	})

	category := categories[0]
	if !category.Taxable {
		s.Logger.Debugw("service type classified as non-taxable",
			"service_type", serviceType,
			"category_id", category.ID)
		return nil, nil
	}

	return category, nil
}

func (s *taxCategoryService) invalidateCalculations(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixCalculation)
		s.Cache.DeleteByPrefix(ctx, cache.PrefixTaxCategory)
	}
}

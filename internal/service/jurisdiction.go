package service

import (
	"context"
	"sort"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// JurisdictionService manages the jurisdiction catalog and resolves the set
// of taxing authorities applicable to a service address.
type JurisdictionService interface {
	CreateJurisdiction(ctx context.Context, req *dto.CreateJurisdictionRequest) (*dto.JurisdictionResponse, error)
	GetJurisdiction(ctx context.Context, id string) (*dto.JurisdictionResponse, error)
	ListJurisdictions(ctx context.Context, filter *types.JurisdictionFilter) (*dto.ListJurisdictionsResponse, error)
	UpdateJurisdiction(ctx context.Context, id string, req *dto.UpdateJurisdictionRequest) (*dto.JurisdictionResponse, error)
	DeleteJurisdiction(ctx context.Context, id string) error

	// ResolveJurisdictions returns every jurisdiction whose geographic
	// matchers cover the address, ordered broadest-first. Federal
	// jurisdictions are always included; a nil or empty address resolves to
	// federal only.
	ResolveJurisdictions(ctx context.Context, addr *jurisdiction.Address) ([]*jurisdiction.TaxJurisdiction, error)
}

type jurisdictionService struct {
	ServiceParams
}

// NewJurisdictionService creates a new jurisdiction service
func NewJurisdictionService(params ServiceParams) JurisdictionService {
	return &jurisdictionService{
		ServiceParams: params,
	}
}

func (s *jurisdictionService) CreateJurisdiction(ctx context.Context, req *dto.CreateJurisdictionRequest) (*dto.JurisdictionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	j := req.ToJurisdiction(types.GetDefaultBaseModel(ctx))
	if err := s.JurisdictionRepo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToJurisdictionResponse(j), nil
}

func (s *jurisdictionService) GetJurisdiction(ctx context.Context, id string) (*dto.JurisdictionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("jurisdiction id is required").
			WithHint("Jurisdiction ID is required").
			Mark(ierr.ErrValidation)
	}

	j, err := s.JurisdictionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToJurisdictionResponse(j), nil
}

func (s *jurisdictionService) ListJurisdictions(ctx context.Context, filter *types.JurisdictionFilter) (*dto.ListJurisdictionsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultJurisdictionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	jurisdictions, err := s.JurisdictionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.JurisdictionRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.JurisdictionResponse, len(jurisdictions))
	for i, j := range jurisdictions {
		items[i] = dto.ToJurisdictionResponse(j)
	}

	return &dto.ListJurisdictionsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *jurisdictionService) UpdateJurisdiction(ctx context.Context, id string, req *dto.UpdateJurisdictionRequest) (*dto.JurisdictionResponse, error) {
	j, err := s.JurisdictionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		j.Name = *req.Name
	}
	if req.AuthorityName != nil {
		j.AuthorityName = *req.AuthorityName
	}
	if req.StateCode != nil {
		j.StateCode = *req.StateCode
	}
	if req.CountyName != nil {
		j.CountyName = *req.CountyName
	}
	if req.CityName != nil {
		j.CityName = *req.CityName
	}
	if req.ZipCodes != nil {
		j.ZipCodes = req.ZipCodes
	}
	if req.Priority != nil {
		j.Priority = *req.Priority
	}
	j.UpdatedBy = types.GetUserID(ctx)

	if err := s.JurisdictionRepo.Update(ctx, j); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToJurisdictionResponse(j), nil
}

func (s *jurisdictionService) DeleteJurisdiction(ctx context.Context, id string) error {
	j, err := s.JurisdictionRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.JurisdictionRepo.Delete(ctx, j); err != nil {
		return err
	}

	s.invalidateCalculations(ctx)
	return nil
}

func (s *jurisdictionService) ResolveJurisdictions(ctx context.Context, addr *jurisdiction.Address) ([]*jurisdiction.TaxJurisdiction, error) {
	all, err := s.JurisdictionRepo.List(ctx, types.NewNoLimitJurisdictionFilter())
	if err != nil {
		return nil, err
	}

	matched := make([]*jurisdiction.TaxJurisdiction, 0, len(all))
	for _, j := range all {
		if j.Matches(addr) {
			matched = append(matched, j)
		}
	}

	// broadest-first so federal lines always precede state and local ones
	// in the breakdown
	sort.SliceStable(matched, func(i, k int) bool {
		ri, rk := matched[i].JurisdictionType.SpecificityRank(), matched[k].JurisdictionType.SpecificityRank()
		if ri != rk {
			return ri < rk
		}
		return matched[i].Priority < matched[k].Priority
	})

	s.Logger.Debugw("resolved jurisdictions",
		"address", addr.Normalized(),
		"count", len(matched))

	return matched, nil
}

// invalidateCalculations drops cached calculation results after any catalog
// mutation so no stale result outlives a rate or jurisdiction change.
func (s *jurisdictionService) invalidateCalculations(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixCalculation)
		s.Cache.DeleteByPrefix(ctx, cache.PrefixJurisdiction)
	}
}

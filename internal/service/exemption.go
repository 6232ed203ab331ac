package service

import (
	"context"
	"sort"
	"time"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// ExemptionService manages tax exemptions, matches the ones applicable to a
// calculation and exposes the append-only usage audit log.
type ExemptionService interface {
	CreateExemption(ctx context.Context, req *dto.CreateExemptionRequest) (*dto.ExemptionResponse, error)
	GetExemption(ctx context.Context, id string) (*dto.ExemptionResponse, error)
	ListExemptions(ctx context.Context, filter *types.ExemptionFilter) (*dto.ListExemptionsResponse, error)
	UpdateExemption(ctx context.Context, id string, req *dto.UpdateExemptionRequest) (*dto.ExemptionResponse, error)
	DeleteExemption(ctx context.Context, id string) error

	// MatchExemptions returns the client's exemptions valid at the given
	// instant, ordered by priority. An empty client ID matches nothing.
	MatchExemptions(ctx context.Context, clientID string, at time.Time) ([]*exemption.TaxExemption, error)

	// RecordUsage appends one usage audit row. Replaying the same
	// (exemption, document, line) is a no-op.
	RecordUsage(ctx context.Context, usage *exemption.TaxExemptionUsage) error
	ListUsageByExemption(ctx context.Context, exemptionID string) ([]*exemption.TaxExemptionUsage, error)
	ListUsageByReference(ctx context.Context, referenceType, referenceID string) ([]*exemption.TaxExemptionUsage, error)
}

type exemptionService struct {
	ServiceParams
}

// NewExemptionService creates a new exemption service
func NewExemptionService(params ServiceParams) ExemptionService {
	return &exemptionService{
		ServiceParams: params,
	}
}

func (s *exemptionService) CreateExemption(ctx context.Context, req *dto.CreateExemptionRequest) (*dto.ExemptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e := req.ToExemption(types.GetDefaultBaseModel(ctx))
	if err := s.ExemptionRepo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToExemptionResponse(e), nil
}

func (s *exemptionService) GetExemption(ctx context.Context, id string) (*dto.ExemptionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("exemption id is required").
			WithHint("Exemption ID is required").
			Mark(ierr.ErrValidation)
	}

	e, err := s.ExemptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToExemptionResponse(e), nil
}

func (s *exemptionService) ListExemptions(ctx context.Context, filter *types.ExemptionFilter) (*dto.ListExemptionsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultExemptionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	exemptions, err := s.ExemptionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.ExemptionRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ExemptionResponse, len(exemptions))
	for i, e := range exemptions {
		items[i] = dto.ToExemptionResponse(e)
	}

	return &dto.ListExemptionsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *exemptionService) UpdateExemption(ctx context.Context, id string, req *dto.UpdateExemptionRequest) (*dto.ExemptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e, err := s.ExemptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.JurisdictionID != nil {
		e.JurisdictionID = req.JurisdictionID
	}
	if req.ApplicableTaxTypes != nil {
		e.ApplicableTaxTypes = req.ApplicableTaxTypes
	}
	if req.IsBlanketExemption != nil {
		e.IsBlanketExemption = *req.IsBlanketExemption
	}
	if req.ExemptionPercentage != nil {
		e.ExemptionPercentage = *req.ExemptionPercentage
	}
	if req.CertificateNumber != nil {
		e.CertificateNumber = *req.CertificateNumber
	}
	if req.ExemptionStatus != nil {
		e.ExemptionStatus = *req.ExemptionStatus
	}
	if req.ExpiresAt != nil {
		e.ExpiresAt = req.ExpiresAt
	}
	if req.Priority != nil {
		e.Priority = *req.Priority
	}
	e.UpdatedBy = types.GetUserID(ctx)

	if err := s.ExemptionRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToExemptionResponse(e), nil
}

func (s *exemptionService) DeleteExemption(ctx context.Context, id string) error {
	e, err := s.ExemptionRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ExemptionRepo.Delete(ctx, e); err != nil {
		return err
	}

	s.invalidateCalculations(ctx)
	return nil
}

func (s *exemptionService) MatchExemptions(ctx context.Context, clientID string, at time.Time) ([]*exemption.TaxExemption, error) {
	if clientID == "" {
		return nil, nil
	}

	filter := types.NewNoLimitExemptionFilter()
	filter.ClientID = clientID

	exemptions, err := s.ExemptionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	valid := make([]*exemption.TaxExemption, 0, len(exemptions))
	for _, e := range exemptions {
		if e.IsValidOn(at) {
			valid = append(valid, e)
		}
	}

	sort.SliceStable(valid, func(i, k int) bool {
		return valid[i].Priority < valid[k].Priority
	})

	s.Logger.Debugw("matched exemptions",
		"client_id", clientID,
		"count", len(valid))

	return valid, nil
}

func (s *exemptionService) RecordUsage(ctx context.Context, usage *exemption.TaxExemptionUsage) error {
	return s.ExemptionUsageRepo.Record(ctx, usage)
}

func (s *exemptionService) ListUsageByExemption(ctx context.Context, exemptionID string) ([]*exemption.TaxExemptionUsage, error) {
	return s.ExemptionUsageRepo.ListByExemption(ctx, exemptionID)
}

func (s *exemptionService) ListUsageByReference(ctx context.Context, referenceType, referenceID string) ([]*exemption.TaxExemptionUsage, error) {
	return s.ExemptionUsageRepo.ListByReference(ctx, referenceType, referenceID)
}

func (s *exemptionService) invalidateCalculations(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixCalculation)
		s.Cache.DeleteByPrefix(ctx, cache.PrefixExemption)
	}
}

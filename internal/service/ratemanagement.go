package service

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// TaxRateService is the management path for the rate catalog. Every
// mutation runs in a transaction together with its audit history row;
// a mutation without history never becomes visible.
type TaxRateService interface {
	CreateTaxRate(ctx context.Context, req *dto.CreateTaxRateRequest) (*dto.TaxRateResponse, error)
	GetTaxRate(ctx context.Context, id string) (*dto.TaxRateResponse, error)
	GetTaxRateByCode(ctx context.Context, code string) (*dto.TaxRateResponse, error)
	ListTaxRates(ctx context.Context, filter *types.TaxRateFilter) (*dto.ListTaxRatesResponse, error)
	UpdateTaxRate(ctx context.Context, id string, req *dto.UpdateTaxRateRequest) (*dto.TaxRateResponse, error)
	ExpireTaxRate(ctx context.Context, id string, req *dto.ExpireTaxRateRequest) (*dto.TaxRateResponse, error)
	ScheduleTaxRateChange(ctx context.Context, id string, req *dto.ScheduleTaxRateChangeRequest) (*dto.TaxRateResponse, error)
	BulkImportTaxRates(ctx context.Context, req *dto.BulkImportTaxRatesRequest) (*dto.BulkImportTaxRatesResponse, error)
	ExportTaxRates(ctx context.Context, filter *types.TaxRateFilter) (*dto.TaxRateExport, error)
	RestoreTaxRates(ctx context.Context, req *dto.RestoreTaxRatesRequest) (*dto.BulkImportTaxRatesResponse, error)
	GetTaxRateHistory(ctx context.Context, id string) ([]*dto.TaxRateHistoryResponse, error)
}

type taxRateService struct {
	ServiceParams
}

// NewTaxRateService creates a new tax rate management service
func NewTaxRateService(params ServiceParams) TaxRateService {
	return &taxRateService{
		ServiceParams: params,
	}
}

func (s *taxRateService) CreateTaxRate(ctx context.Context, req *dto.CreateTaxRateRequest) (*dto.TaxRateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.JurisdictionRepo.Get(ctx, req.JurisdictionID); err != nil {
		return nil, err
	}
	if _, err := s.TaxCategoryRepo.Get(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	rate := req.ToTaxRate(types.GetDefaultBaseModel(ctx))

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TaxRateRepo.Create(ctx, rate); err != nil {
			return err
		}
		return s.writeHistory(ctx, rate.ID, types.TaxRateChangeTypeCreated, nil, rate, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxRateResponse(rate), nil
}

func (s *taxRateService) GetTaxRate(ctx context.Context, id string) (*dto.TaxRateResponse, error) {
	if id == "" {
		return nil, ierr.NewError("tax rate id is required").
			WithHint("Tax rate ID is required").
			Mark(ierr.ErrValidation)
	}

	rate, err := s.TaxRateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToTaxRateResponse(rate), nil
}

func (s *taxRateService) GetTaxRateByCode(ctx context.Context, code string) (*dto.TaxRateResponse, error) {
	if code == "" {
		return nil, ierr.NewError("tax rate code is required").
			WithHint("Tax rate code is required").
			Mark(ierr.ErrValidation)
	}

	rate, err := s.TaxRateRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return dto.ToTaxRateResponse(rate), nil
}

func (s *taxRateService) ListTaxRates(ctx context.Context, filter *types.TaxRateFilter) (*dto.ListTaxRatesResponse, error) {
	if filter == nil {
		filter = types.NewDefaultTaxRateFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rates, err := s.TaxRateRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.TaxRateRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TaxRateResponse, len(rates))
	for i, rate := range rates {
		items[i] = dto.ToTaxRateResponse(rate)
	}

	return &dto.ListTaxRatesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *taxRateService) UpdateTaxRate(ctx context.Context, id string, req *dto.UpdateTaxRateRequest) (*dto.TaxRateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rate, err := s.TaxRateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *rate

	if req.Name != nil {
		rate.Name = *req.Name
	}
	if req.Description != nil {
		rate.Description = *req.Description
	}
	if req.PercentageRate != nil {
		rate.PercentageRate = req.PercentageRate
	}
	if req.FixedAmount != nil {
		rate.FixedAmount = req.FixedAmount
	}
	if req.MinimumThreshold != nil {
		rate.MinimumThreshold = req.MinimumThreshold
	}
	if req.MaximumAmount != nil {
		rate.MaximumAmount = req.MaximumAmount
	}
	if len(req.Tiers) > 0 {
		rate.Tiers = req.Tiers
	}
	if req.AuthorityName != nil {
		rate.AuthorityName = *req.AuthorityName
	}
	if req.ServiceTypes != nil {
		rate.ServiceTypes = req.ServiceTypes
	}
	if req.EffectiveFrom != nil {
		rate.EffectiveFrom = req.EffectiveFrom
	}
	if req.EffectiveTo != nil {
		rate.EffectiveTo = req.EffectiveTo
	}
	if req.Priority != nil {
		rate.Priority = *req.Priority
	}
	if req.TaxRateStatus != nil {
		rate.TaxRateStatus = *req.TaxRateStatus
	}
	if req.Metadata != nil {
		rate.Metadata = req.Metadata
	}
	rate.UpdatedAt = time.Now().UTC()
	rate.UpdatedBy = types.GetUserID(ctx)

	if err := rate.SanityCheck(); err != nil {
		return nil, err
	}
	if rate.EffectiveFrom != nil && rate.EffectiveTo != nil && rate.EffectiveFrom.After(*rate.EffectiveTo) {
		return nil, ierr.NewError("effective_from must be before effective_to").
			WithHint("The effective window start must precede its end").
			Mark(ierr.ErrValidation)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TaxRateRepo.Update(ctx, rate); err != nil {
			return err
		}
		return s.writeHistory(ctx, rate.ID, types.TaxRateChangeTypeUpdated, &old, rate, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxRateResponse(rate), nil
}

// ExpireTaxRate end-dates a rate. Rates are never hard-deleted.
func (s *taxRateService) ExpireTaxRate(ctx context.Context, id string, req *dto.ExpireTaxRateRequest) (*dto.TaxRateResponse, error) {
	rate, err := s.TaxRateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *rate

	effectiveTo := time.Now().UTC()
	if req != nil && req.EffectiveTo != nil {
		effectiveTo = req.EffectiveTo.UTC()
	}
	rate.EffectiveTo = &effectiveTo
	if !effectiveTo.After(time.Now().UTC()) {
		rate.TaxRateStatus = types.TaxRateStatusExpired
	}
	rate.UpdatedAt = time.Now().UTC()
	rate.UpdatedBy = types.GetUserID(ctx)

	reason := ""
	if req != nil {
		reason = req.Reason
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TaxRateRepo.Update(ctx, rate); err != nil {
			return err
		}
		return s.writeHistory(ctx, rate.ID, types.TaxRateChangeTypeExpired, &old, rate, reason)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxRateResponse(rate), nil
}

// ScheduleTaxRateChange end-dates the existing rate at the scheduled instant
// and creates its replacement effective from the same instant, atomically.
func (s *taxRateService) ScheduleTaxRateChange(ctx context.Context, id string, req *dto.ScheduleTaxRateChangeRequest) (*dto.TaxRateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.TaxRateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *current

	effectiveFrom := req.EffectiveFrom.UTC()
	current.EffectiveTo = &effectiveFrom
	current.UpdatedAt = time.Now().UTC()
	current.UpdatedBy = types.GetUserID(ctx)

	replacement := req.NewRate.ToTaxRate(types.GetDefaultBaseModel(ctx))
	replacement.EffectiveFrom = &effectiveFrom

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TaxRateRepo.Update(ctx, current); err != nil {
			return err
		}
		if err := s.writeHistory(ctx, current.ID, types.TaxRateChangeTypeScheduled, &old, current, req.Reason); err != nil {
			return err
		}
		if err := s.TaxRateRepo.Create(ctx, replacement); err != nil {
			return err
		}
		return s.writeHistory(ctx, replacement.ID, types.TaxRateChangeTypeScheduled, nil, replacement, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)
	return dto.ToTaxRateResponse(replacement), nil
}

// BulkImportTaxRates imports a batch of rates in one transaction. One bad
// rate aborts the whole import.
func (s *taxRateService) BulkImportTaxRates(ctx context.Context, req *dto.BulkImportTaxRatesRequest) (*dto.BulkImportTaxRatesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rates := make([]*taxrate.TaxRate, len(req.Rates))
	for i := range req.Rates {
		rates[i] = req.Rates[i].ToTaxRate(types.GetDefaultBaseModel(ctx))
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		for _, rate := range rates {
			if err := s.TaxRateRepo.Create(ctx, rate); err != nil {
				return err
			}
			if err := s.writeHistory(ctx, rate.ID, types.TaxRateChangeTypeImported, nil, rate, req.Reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)

	items := make([]*dto.TaxRateResponse, len(rates))
	for i, rate := range rates {
		items[i] = dto.ToTaxRateResponse(rate)
	}
	return &dto.BulkImportTaxRatesResponse{
		Imported: len(rates),
		Rates:    items,
	}, nil
}

// ExportTaxRates produces a portable snapshot of the catalog for compliance
// archival or migration.
func (s *taxRateService) ExportTaxRates(ctx context.Context, filter *types.TaxRateFilter) (*dto.TaxRateExport, error) {
	if filter == nil {
		filter = types.NewNoLimitTaxRateFilter()
	}

	rates, err := s.TaxRateRepo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	export := &dto.TaxRateExport{
		ExportedAt: time.Now().UTC(),
		Rates:      rates,
	}

	// round-trip through the wire codec so the snapshot is exactly what a
	// restore will read back
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(export)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize tax rate export").
			Mark(ierr.ErrSystem)
	}
	var verified dto.TaxRateExport
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(payload, &verified); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to verify tax rate export").
			Mark(ierr.ErrSystem)
	}

	return export, nil
}

// RestoreTaxRates re-imports an exported snapshot. Restored rates get fresh
// IDs so a restore never silently overwrites live rows.
func (s *taxRateService) RestoreTaxRates(ctx context.Context, req *dto.RestoreTaxRatesRequest) (*dto.BulkImportTaxRatesResponse, error) {
	if req == nil || req.Export == nil || len(req.Export.Rates) == 0 {
		return nil, ierr.NewError("export payload is required").
			WithHint("Restore requires a non-empty export payload").
			Mark(ierr.ErrValidation)
	}

	rates := make([]*taxrate.TaxRate, len(req.Export.Rates))
	for i, src := range req.Export.Rates {
		restored := *src
		restored.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE)
		restored.BaseModel = types.GetDefaultBaseModel(ctx)
		if err := restored.SanityCheck(); err != nil {
			return nil, err
		}
		if restored.RateType == types.TaxRateTypeTiered {
			if err := taxrate.ValidateTiers(restored.Tiers); err != nil {
				return nil, err
			}
		}
		rates[i] = &restored
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		for _, rate := range rates {
			if err := s.TaxRateRepo.Create(ctx, rate); err != nil {
				return err
			}
			if err := s.writeHistory(ctx, rate.ID, types.TaxRateChangeTypeRestored, nil, rate, req.Reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCalculations(ctx)

	items := make([]*dto.TaxRateResponse, len(rates))
	for i, rate := range rates {
		items[i] = dto.ToTaxRateResponse(rate)
	}
	return &dto.BulkImportTaxRatesResponse{
		Imported: len(rates),
		Rates:    items,
	}, nil
}

func (s *taxRateService) GetTaxRateHistory(ctx context.Context, id string) ([]*dto.TaxRateHistoryResponse, error) {
	history, err := s.TaxRateHistoryRepo.ListByTaxRate(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TaxRateHistoryResponse, len(history))
	for i, h := range history {
		items[i] = &dto.TaxRateHistoryResponse{TaxRateHistory: h}
	}
	return items, nil
}

func (s *taxRateService) writeHistory(ctx context.Context, taxRateID string, changeType types.TaxRateChangeType, old, new_ *taxrate.TaxRate, reason string) error {
	return s.TaxRateHistoryRepo.Create(ctx, &taxrate.TaxRateHistory{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE_HISTORY),
		TaxRateID:  taxRateID,
		ChangeType: changeType,
		OldValues:  old,
		NewValues:  new_,
		Reason:     reason,
		ActorID:    types.GetUserID(ctx),
		ChangedAt:  time.Now().UTC(),
		BaseModel:  types.GetDefaultBaseModel(ctx),
	})
}

func (s *taxRateService) invalidateCalculations(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixCalculation)
		s.Cache.DeleteByPrefix(ctx, cache.PrefixTaxRate)
		s.Cache.DeleteByPrefix(ctx, cache.PrefixUSFRate)
	}
}

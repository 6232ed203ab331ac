package service

import (
	"context"
	"sort"
	"time"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	"github.com/voxbill/voxbill/internal/types"
)

// RateResolver finds the catalog rates applicable to one calculation:
// active, effective on the calculation date, scoped to the resolved
// jurisdictions and category, and covering the service type.
type RateResolver interface {
	ResolveRates(ctx context.Context, jurisdictionIDs []string, categoryID, serviceType string, at time.Time) ([]*taxrate.TaxRate, error)
}

type rateResolver struct {
	ServiceParams
}

// NewRateResolver creates a new rate resolver
func NewRateResolver(params ServiceParams) RateResolver {
	return &rateResolver{
		ServiceParams: params,
	}
}

func (r *rateResolver) ResolveRates(ctx context.Context, jurisdictionIDs []string, categoryID, serviceType string, at time.Time) ([]*taxrate.TaxRate, error) {
	if len(jurisdictionIDs) == 0 {
		return nil, nil
	}

	filter := types.NewNoLimitTaxRateFilter()
	filter.JurisdictionIDs = jurisdictionIDs
	if categoryID != "" {
		filter.CategoryIDs = []string{categoryID}
	}
	filter.ServiceType = serviceType
	filter.EffectiveOn = &at

	rates, err := r.TaxRateRepo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	applicable := make([]*taxrate.TaxRate, 0, len(rates))
	for _, rate := range rates {
		if rate.TaxRateStatus != types.TaxRateStatusActive {
			continue
		}
		if !rate.IsEffectiveOn(at) {
			continue
		}
		// a misconfigured rate must not abort the whole calculation; skip it
		// and leave a trace for reconciliation
		if err := rate.SanityCheck(); err != nil {
			r.Logger.Warnw("skipping misconfigured tax rate",
				"tax_rate_id", rate.ID,
				"code", rate.Code,
				"error", err)
			continue
		}
		applicable = append(applicable, rate)
	}

	sort.SliceStable(applicable, func(i, k int) bool {
		return applicable[i].Priority < applicable[k].Priority
	})

	return applicable, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/types"
)

// USFRateProvider resolves the Universal Service Fund contribution factor
// for a calculation date. The factor is versioned quarterly: tenants may
// load effective-dated USF rates into the catalog, and the provider falls
// back to the configured default when no override covers the quarter.
type USFRateProvider interface {
	GetRate(ctx context.Context, at time.Time) (decimal.Decimal, error)
}

type usfRateProvider struct {
	ServiceParams
}

// NewUSFRateProvider creates a new USF rate provider
func NewUSFRateProvider(params ServiceParams) USFRateProvider {
	return &usfRateProvider{
		ServiceParams: params,
	}
}

// quarterKey buckets an instant into its calendar quarter, e.g. "2026-Q3"
func quarterKey(at time.Time) string {
	return fmt.Sprintf("%d-Q%d", at.Year(), (int(at.Month())-1)/3+1)
}

func (p *usfRateProvider) GetRate(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	tenantID := types.GetTenantID(ctx)
	cacheKey := cache.GenerateKey(cache.PrefixUSFRate, tenantID, quarterKey(at))

	if p.Cache != nil {
		if cached, found := p.Cache.Get(ctx, cacheKey); found {
			if rate, ok := cached.(decimal.Decimal); ok {
				return rate, nil
			}
		}
	}

	rate, err := p.lookupRate(ctx, at)
	if err != nil {
		p.Logger.Warnw("usf rate lookup failed, using configured default",
			"quarter", quarterKey(at),
			"default_rate", p.Config.Tax.DefaultUSFRate.String(),
			"error", err)
		rate = p.Config.Tax.DefaultUSFRate
	}

	if p.Cache != nil {
		p.Cache.Set(ctx, cacheKey, rate, p.Config.Cache.USFRateTTL)
	}

	return rate, nil
}

// lookupRate queries the catalog for an effective-dated USF override. The
// lookup retries briefly before the caller degrades to the configured
// default.
func (p *usfRateProvider) lookupRate(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	var rate decimal.Decimal

	operation := func() error {
		filter := types.NewNoLimitTaxRateFilter()
		filter.TaxTypes = []string{types.TaxTypeUSF}
		filter.EffectiveOn = &at

		rates, err := p.TaxRateRepo.ListAll(ctx, filter)
		if err != nil {
			return err
		}

		for _, r := range rates {
			if r.TaxRateStatus != types.TaxRateStatusActive || r.PercentageRate == nil {
				continue
			}
			rate = *r.PercentageRate
			return nil
		}

		rate = p.Config.Tax.DefaultUSFRate
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return decimal.Zero, err
	}

	return rate, nil
}

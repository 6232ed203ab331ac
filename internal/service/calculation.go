package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/voxbill/voxbill/internal/api/dto"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/domain/calculation"
	"github.com/voxbill/voxbill/internal/domain/exemption"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// TaxCalculationService orchestrates one full tax calculation: jurisdiction
// resolution, service classification, rate and exemption resolution, the
// built-in federal catalog, per-line computation and final aggregation.
type TaxCalculationService interface {
	CalculateTax(ctx context.Context, req *dto.CalculateTaxRequest) (*dto.CalculationResponse, error)
}

type taxCalculationService struct {
	ServiceParams
	jurisdictionService JurisdictionService
	taxCategoryService  TaxCategoryService
	exemptionService    ExemptionService
	rateResolver        RateResolver
	usfProvider         USFRateProvider
	engine              TaxComputationEngine
	aggregator          ResultAggregator
}

// NewTaxCalculationService creates the calculation orchestrator
func NewTaxCalculationService(
	params ServiceParams,
	jurisdictionService JurisdictionService,
	taxCategoryService TaxCategoryService,
	exemptionService ExemptionService,
	rateResolver RateResolver,
	usfProvider USFRateProvider,
) TaxCalculationService {
	return &taxCalculationService{
		ServiceParams:       params,
		jurisdictionService: jurisdictionService,
		taxCategoryService:  taxCategoryService,
		exemptionService:    exemptionService,
		rateResolver:        rateResolver,
		usfProvider:         usfProvider,
		engine:              NewTaxComputationEngine(),
		aggregator:          NewResultAggregator(),
	}
}

// taxLine pairs a computed line with the scoping the orchestrator needs for
// exemption usage recording and level bucketing.
type taxLine struct {
	result         calculation.TaxLineResult
	level          types.TaxLevel
	jurisdictionID string
	exemptions     []*exemption.TaxExemption
	rawAmount      decimal.Decimal
}

func (s *taxCalculationService) CalculateTax(ctx context.Context, req *dto.CalculateTaxRequest) (*dto.CalculationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := types.ValidateTenantContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Tax calculations require a tenant context").
			Mark(ierr.ErrPermissionDenied)
	}

	calcDate := req.GetCalculationDate()
	addr := req.ToAddress()
	cacheKey := s.calculationCacheKey(ctx, req, addr, calcDate)

	// only previews are served from cache; document-bound requests always
	// recompute so exemption usage is recorded, and the idempotent usage
	// log absorbs replays
	if req.IsPreview() && s.cacheEnabled() {
		if cached, found := s.Cache.Get(ctx, cacheKey); found {
			if result, ok := cached.(*calculation.Result); ok {
				s.Logger.Debugw("serving cached calculation", "cache_key", cacheKey)
				return dto.ToCalculationResponse(result), nil
			}
		}
	}

	result, err := s.calculate(ctx, req, addr, calcDate)
	if err != nil {
		if fallback, ok := s.tryFallback(ctx, req, err); ok {
			return dto.ToCalculationResponse(fallback), nil
		}
		return nil, err
	}

	if req.IsPreview() && s.cacheEnabled() {
		s.Cache.Set(ctx, cacheKey, result, s.Config.Cache.CalculationTTL)
	}

	return dto.ToCalculationResponse(result), nil
}

func (s *taxCalculationService) calculate(ctx context.Context, req *dto.CalculateTaxRequest, addr *jurisdiction.Address, calcDate time.Time) (*calculation.Result, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.Config.Tax.LookupTimeout)
	defer cancel()

	jurisdictions, err := s.jurisdictionService.ResolveJurisdictions(lookupCtx, addr)
	if err != nil {
		return nil, err
	}

	category, err := s.taxCategoryService.ClassifyServiceType(lookupCtx, req.ServiceType)
	if err != nil {
		return nil, err
	}
	if category == nil {
		// untaxed service type: the result still reports the base amount
		// and a zero tax total
		return s.aggregator.Aggregate(req.Amount, nil, nil, nil), nil
	}

	var (
		exemptions []*exemption.TaxExemption
		rates      []*taxrate.TaxRate
	)
	jurisdictionIDs := make([]string, len(jurisdictions))
	for i, j := range jurisdictions {
		jurisdictionIDs[i] = j.ID
	}

	p := pool.New().WithContext(lookupCtx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		matched, err := s.exemptionService.MatchExemptions(ctx, req.ClientID, calcDate)
		if err != nil {
			return err
		}
		exemptions = matched
		return nil
	})
	p.Go(func(ctx context.Context) error {
		resolved, err := s.rateResolver.ResolveRates(ctx, jurisdictionIDs, category.ID, req.ServiceType, calcDate)
		if err != nil {
			return err
		}
		rates = resolved
		return nil
	})
	if err := p.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ierr.WithError(err).
				WithHint("Rate catalog lookup timed out").
				Mark(ierr.ErrDependency)
		}
		return nil, err
	}

	input := ComputationInput{
		BaseAmount: req.Amount,
		LineCount:  req.GetLineCount(),
		Minutes:    req.Minutes,
		Units:      req.Units,
	}

	lines := make([]*taxLine, 0, len(rates)+2)

	federalLines, err := s.builtinFederalLines(ctx, req, rates, exemptions, calcDate)
	if err != nil {
		return nil, err
	}
	lines = append(lines, federalLines...)

	jurisdictionsByID := make(map[string]*jurisdiction.TaxJurisdiction, len(jurisdictions))
	for _, j := range jurisdictions {
		jurisdictionsByID[j.ID] = j
	}

	// compound rates tax the running total of base plus previously applied
	// taxes, so application order follows rate priority
	accumulated := decimal.Zero
	for _, line := range lines {
		accumulated = accumulated.Add(line.result.TaxAmount)
	}

	for _, rate := range rates {
		j := jurisdictionsByID[rate.JurisdictionID]
		if j == nil {
			s.Logger.Warnw("rate references unresolved jurisdiction, skipping",
				"tax_rate_id", rate.ID,
				"jurisdiction_id", rate.JurisdictionID)
			continue
		}

		rateInput := input
		if rate.CalculationMethod == types.TaxCalculationMethodCompound {
			rateInput.BaseAmount = req.Amount.Add(accumulated)
		}

		raw, err := s.engine.ComputeLine(rate, rateInput)
		if err != nil {
			s.Logger.Warnw("tax line computation failed, skipping rate",
				"tax_rate_id", rate.ID,
				"error", err)
			continue
		}

		line := s.applyExemptions(&taxLine{
			result: calculation.TaxLineResult{
				TaxName:          rate.Name,
				TaxType:          rate.TaxType,
				RateType:         rate.RateType,
				RateValue:        rateValue(rate),
				BaseAmount:       rateInput.BaseAmount,
				JurisdictionName: j.Name,
				AuthorityName:    rate.AuthorityName,
			},
			level:          j.JurisdictionType.TaxLevel(),
			jurisdictionID: rate.JurisdictionID,
			rawAmount:      raw,
		}, exemptions)

		accumulated = accumulated.Add(line.result.TaxAmount)
		lines = append(lines, line)
	}

	if !req.IsPreview() {
		if err := s.recordExemptionUsage(ctx, req, lines); err != nil {
			return nil, err
		}
	}

	return s.buildResult(req.Amount, lines, jurisdictions), nil
}

// builtinFederalLines applies the engine-known federal catalog: the federal
// excise tax and the USF contribution. Catalog-configured rates for the same
// tax types take precedence over the built-ins.
func (s *taxCalculationService) builtinFederalLines(ctx context.Context, req *dto.CalculateTaxRequest, rates []*taxrate.TaxRate, exemptions []*exemption.TaxExemption, calcDate time.Time) ([]*taxLine, error) {
	catalogTaxTypes := make(map[string]bool, len(rates))
	for _, r := range rates {
		catalogTaxTypes[r.TaxType] = true
	}

	var lines []*taxLine

	// federal excise applies only strictly above the minimum base
	if !catalogTaxTypes[types.TaxTypeFederalExcise] &&
		lo.Contains(types.FederalExciseServiceTypes, req.ServiceType) &&
		req.Amount.GreaterThan(s.Config.Tax.FederalExciseMinimumBase) {

		raw := req.Amount.Mul(s.Config.Tax.FederalExciseRate.Div(oneHundred)).Round(types.TaxLinePrecision)
		lines = append(lines, s.applyExemptions(&taxLine{
			result: calculation.TaxLineResult{
				TaxName:       "Federal Excise Tax",
				TaxType:       types.TaxTypeFederalExcise,
				RateType:      types.TaxRateTypePercentage,
				RateValue:     s.Config.Tax.FederalExciseRate,
				BaseAmount:    req.Amount,
				AuthorityName: "Internal Revenue Service",
			},
			level:     types.TaxLevelFederal,
			rawAmount: raw,
		}, exemptions))
	}

	if !catalogTaxTypes[types.TaxTypeUSF] && lo.Contains(types.USFServiceTypes, req.ServiceType) {
		usfRate, err := s.usfProvider.GetRate(ctx, calcDate)
		if err != nil {
			return nil, err
		}

		raw := req.Amount.Mul(usfRate.Div(oneHundred)).Round(types.TaxLinePrecision)
		lines = append(lines, s.applyExemptions(&taxLine{
			result: calculation.TaxLineResult{
				TaxName:       "Universal Service Fund",
				TaxType:       types.TaxTypeUSF,
				RateType:      types.TaxRateTypePercentage,
				RateValue:     usfRate,
				BaseAmount:    req.Amount,
				AuthorityName: "Federal Communications Commission",
			},
			level:     types.TaxLevelFederal,
			rawAmount: raw,
		}, exemptions))
	}

	return lines, nil
}

// applyExemptions reduces a line's raw amount by every applicable exemption
// and finalizes the line's tax and exempted amounts.
func (s *taxCalculationService) applyExemptions(line *taxLine, exemptions []*exemption.TaxExemption) *taxLine {
	var (
		applicable  []*exemption.TaxExemption
		percentages []decimal.Decimal
	)
	for _, e := range exemptions {
		if !e.AppliesToTaxType(line.result.TaxType) {
			continue
		}
		if !e.AppliesToJurisdiction(line.jurisdictionID) {
			continue
		}
		applicable = append(applicable, e)
		percentages = append(percentages, e.ExemptionPercentage)
	}

	taxAmount, exempted := s.engine.ApplyExemptionReduction(line.rawAmount, percentages)
	line.result.TaxAmount = taxAmount
	line.result.ExemptedAmount = exempted
	line.exemptions = applicable
	return line
}

// recordExemptionUsage appends one audit row per exemption and tax line the
// exemption reduced. The usage log's unique key makes replays no-ops.
func (s *taxCalculationService) recordExemptionUsage(ctx context.Context, req *dto.CalculateTaxRequest, lines []*taxLine) error {
	now := time.Now().UTC()
	for _, line := range lines {
		if line.result.ExemptedAmount.IsZero() {
			continue
		}
		lineRef := req.LineRef
		if lineRef == "" {
			lineRef = line.result.TaxType
		}
		for _, e := range line.exemptions {
			usage := &exemption.TaxExemptionUsage{
				ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION_USAGE),
				ExemptionID:   e.ID,
				ReferenceType: req.ReferenceType,
				ReferenceID:   req.ReferenceID,
				LineRef:       lineRef,
				TaxType:       line.result.TaxType,
				TaxBefore:     line.rawAmount,
				Reduction:     line.result.ExemptedAmount,
				AppliedAt:     now,
				BaseModel:     types.GetDefaultBaseModel(ctx),
			}
			if err := s.exemptionService.RecordUsage(ctx, usage); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *taxCalculationService) buildResult(baseAmount decimal.Decimal, lines []*taxLine, jurisdictions []*jurisdiction.TaxJurisdiction) *calculation.Result {
	var federal, state, local []calculation.TaxLineResult
	exemptionIDs := make(map[string]bool)
	for _, line := range lines {
		switch line.level {
		case types.TaxLevelFederal:
			federal = append(federal, line.result)
		case types.TaxLevelState:
			state = append(state, line.result)
		default:
			local = append(local, line.result)
		}
		if !line.result.ExemptedAmount.IsZero() {
			for _, e := range line.exemptions {
				exemptionIDs[e.ID] = true
			}
		}
	}

	result := s.aggregator.Aggregate(baseAmount, federal, state, local)
	for _, j := range jurisdictions {
		result.Jurisdictions = append(result.Jurisdictions, j.Name)
	}
	for id := range exemptionIDs {
		result.ExemptionsApplied = append(result.ExemptionsApplied, id)
	}
	return result
}

// tryFallback degrades to the configured flat estimated rate when the rate
// catalog is unreachable. Fallback results are flagged so downstream billing
// can reconcile them once the catalog recovers.
func (s *taxCalculationService) tryFallback(ctx context.Context, req *dto.CalculateTaxRequest, cause error) (*calculation.Result, bool) {
	degraded := ierr.IsDatabase(cause) || ierr.IsDependency(cause) ||
		errors.Is(cause, context.DeadlineExceeded)
	if !degraded {
		return nil, false
	}

	s.Logger.Warnw("rate resolution unavailable, using flat fallback rate",
		"fallback_rate", s.Config.Tax.FallbackRate.String(),
		"service_type", req.ServiceType,
		"error", cause)

	raw := req.Amount.Mul(s.Config.Tax.FallbackRate.Div(oneHundred)).Round(types.TaxLinePrecision)
	line := calculation.TaxLineResult{
		TaxName:    "Estimated Tax",
		TaxType:    "estimated_tax",
		RateType:   types.TaxRateTypePercentage,
		RateValue:  s.Config.Tax.FallbackRate,
		BaseAmount: req.Amount,
		TaxAmount:  raw,
	}

	result := s.aggregator.Aggregate(req.Amount, []calculation.TaxLineResult{line}, nil, nil)
	result.IsFallback = true
	return result, true
}

func (s *taxCalculationService) calculationCacheKey(ctx context.Context, req *dto.CalculateTaxRequest, addr *jurisdiction.Address, calcDate time.Time) string {
	return cache.GenerateKey(cache.PrefixCalculation,
		types.GetTenantID(ctx),
		req.Amount.String(),
		req.ServiceType,
		addr.Normalized(),
		req.ClientID,
		calcDate.Format("2006-01-02"),
		req.GetLineCount(),
		req.Minutes.String(),
		req.Units.String(),
	)
}

func (s *taxCalculationService) cacheEnabled() bool {
	return s.Cache != nil && s.Config.Cache.Enabled
}

func rateValue(rate *taxrate.TaxRate) decimal.Decimal {
	switch rate.RateType {
	case types.TaxRateTypePercentage:
		return *rate.PercentageRate
	case types.TaxRateTypeTiered:
		return decimal.Zero
	default:
		return *rate.FixedAmount
	}
}

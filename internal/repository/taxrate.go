package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

type taxRateRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewTaxRateRepository creates a postgres-backed tax rate repository
func NewTaxRateRepository(db postgres.IClient, logger *logger.Logger) taxrate.Repository {
	return &taxRateRepository{
		db:     db,
		logger: logger,
	}
}

type taxRateRow struct {
	ID                string              `db:"id"`
	Name              string              `db:"name"`
	Code              string              `db:"code"`
	Description       string              `db:"description"`
	JurisdictionID    string              `db:"jurisdiction_id"`
	CategoryID        string              `db:"category_id"`
	TaxType           string              `db:"tax_type"`
	RateType          string              `db:"rate_type"`
	PercentageRate    decimal.NullDecimal `db:"percentage_rate"`
	FixedAmount       decimal.NullDecimal `db:"fixed_amount"`
	MinimumThreshold  decimal.NullDecimal `db:"minimum_threshold"`
	MaximumAmount     decimal.NullDecimal `db:"maximum_amount"`
	Tiers             []byte              `db:"tiers"`
	CalculationMethod string              `db:"calculation_method"`
	AuthorityName     string              `db:"authority_name"`
	ServiceTypes      []byte              `db:"service_types"`
	EffectiveFrom     *time.Time          `db:"effective_from"`
	EffectiveTo       *time.Time          `db:"effective_to"`
	Priority          int                 `db:"priority"`
	TaxRateStatus     string              `db:"tax_rate_status"`
	Metadata          []byte              `db:"metadata"`
	types.BaseModel
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func (r *taxRateRepository) toRow(rate *taxrate.TaxRate) (*taxRateRow, error) {
	tiers, err := marshalJSONB(rate.Tiers)
	if err != nil {
		return nil, err
	}
	serviceTypes, err := marshalJSONB(rate.ServiceTypes)
	if err != nil {
		return nil, err
	}
	metadata, err := marshalJSONB(rate.Metadata)
	if err != nil {
		return nil, err
	}

	return &taxRateRow{
		ID:                rate.ID,
		Name:              rate.Name,
		Code:              rate.Code,
		Description:       rate.Description,
		JurisdictionID:    rate.JurisdictionID,
		CategoryID:        rate.CategoryID,
		TaxType:           rate.TaxType,
		RateType:          rate.RateType.String(),
		PercentageRate:    toNullDecimal(rate.PercentageRate),
		FixedAmount:       toNullDecimal(rate.FixedAmount),
		MinimumThreshold:  toNullDecimal(rate.MinimumThreshold),
		MaximumAmount:     toNullDecimal(rate.MaximumAmount),
		Tiers:             tiers,
		CalculationMethod: string(rate.CalculationMethod),
		AuthorityName:     rate.AuthorityName,
		ServiceTypes:      serviceTypes,
		EffectiveFrom:     rate.EffectiveFrom,
		EffectiveTo:       rate.EffectiveTo,
		Priority:          rate.Priority,
		TaxRateStatus:     rate.TaxRateStatus.String(),
		Metadata:          metadata,
		BaseModel:         rate.BaseModel,
	}, nil
}

func (r *taxRateRepository) fromRow(row *taxRateRow) (*taxrate.TaxRate, error) {
	var tiers []taxrate.RateTier
	if err := unmarshalJSONB(row.Tiers, &tiers); err != nil {
		return nil, err
	}
	var serviceTypes []string
	if err := unmarshalJSONB(row.ServiceTypes, &serviceTypes); err != nil {
		return nil, err
	}
	var metadata map[string]string
	if err := unmarshalJSONB(row.Metadata, &metadata); err != nil {
		return nil, err
	}

	return &taxrate.TaxRate{
		ID:                row.ID,
		Name:              row.Name,
		Code:              row.Code,
		Description:       row.Description,
		JurisdictionID:    row.JurisdictionID,
		CategoryID:        row.CategoryID,
		TaxType:           row.TaxType,
		RateType:          types.TaxRateType(row.RateType),
		PercentageRate:    fromNullDecimal(row.PercentageRate),
		FixedAmount:       fromNullDecimal(row.FixedAmount),
		MinimumThreshold:  fromNullDecimal(row.MinimumThreshold),
		MaximumAmount:     fromNullDecimal(row.MaximumAmount),
		Tiers:             tiers,
		CalculationMethod: types.TaxCalculationMethod(row.CalculationMethod),
		AuthorityName:     row.AuthorityName,
		ServiceTypes:      serviceTypes,
		EffectiveFrom:     row.EffectiveFrom,
		EffectiveTo:       row.EffectiveTo,
		Priority:          row.Priority,
		TaxRateStatus:     types.TaxRateStatus(row.TaxRateStatus),
		Metadata:          metadata,
		BaseModel:         row.BaseModel,
	}, nil
}

const taxRateCols = `id, name, code, description, jurisdiction_id, category_id,
	tax_type, rate_type, percentage_rate, fixed_amount, minimum_threshold,
	maximum_amount, tiers, calculation_method, authority_name, service_types,
	effective_from, effective_to, priority, tax_rate_status, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *taxRateRepository) Create(ctx context.Context, rate *taxrate.TaxRate) error {
	row, err := r.toRow(rate)
	if err != nil {
		return err
	}

	const q = `INSERT INTO tax_rates (
		id, name, code, description, jurisdiction_id, category_id, tax_type,
		rate_type, percentage_rate, fixed_amount, minimum_threshold,
		maximum_amount, tiers, calculation_method, authority_name,
		service_types, effective_from, effective_to, priority,
		tax_rate_status, metadata, tenant_id, status, created_at, updated_at,
		created_by, updated_by
	) VALUES (
		:id, :name, :code, :description, :jurisdiction_id, :category_id,
		:tax_type, :rate_type, :percentage_rate, :fixed_amount,
		:minimum_threshold, :maximum_amount, :tiers, :calculation_method,
		:authority_name, :service_types, :effective_from, :effective_to,
		:priority, :tax_rate_status, :metadata, :tenant_id, :status,
		:created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create tax rate").
			WithReportableDetails(map[string]any{
				"tax_rate_id": rate.ID,
				"code":        rate.Code,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *taxRateRepository) Get(ctx context.Context, id string) (*taxrate.TaxRate, error) {
	q := fmt.Sprintf("SELECT %s FROM tax_rates WHERE id = $1 AND tenant_id = $2", taxRateCols)

	var row taxRateRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, q, id, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("tax rate not found").
				WithHintf("Tax rate with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"tax_rate_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get tax rate").
			Mark(ierr.ErrDatabase)
	}

	return r.fromRow(&row)
}

func (r *taxRateRepository) GetByCode(ctx context.Context, code string) (*taxrate.TaxRate, error) {
	q := fmt.Sprintf("SELECT %s FROM tax_rates WHERE code = $1 AND tenant_id = $2 AND status = $3", taxRateCols)

	var row taxRateRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, q, code, types.GetTenantID(ctx), types.StatusPublished.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("tax rate not found").
				WithHintf("Tax rate with code %s was not found", code).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get tax rate by code").
			Mark(ierr.ErrDatabase)
	}

	return r.fromRow(&row)
}

func (r *taxRateRepository) buildListQuery(ctx context.Context, filter *types.TaxRateFilter, selectCols string) (string, []interface{}) {
	var (
		conds = []string{"tenant_id = $1", "status = $2"}
		args  = []interface{}{types.GetTenantID(ctx), filter.GetStatus().String()}
	)

	addInCond := func(col string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
	}

	addInCond("id", filter.TaxRateIDs)
	addInCond("code", filter.TaxRateCodes)
	addInCond("jurisdiction_id", filter.JurisdictionIDs)
	addInCond("category_id", filter.CategoryIDs)
	addInCond("tax_type", filter.TaxTypes)

	if filter.EffectiveOn != nil {
		args = append(args, *filter.EffectiveOn)
		conds = append(conds, fmt.Sprintf("(effective_from IS NULL OR effective_from <= $%d)", len(args)))
		// effective_to is exclusive so scheduled changes hand over cleanly
		args = append(args, *filter.EffectiveOn)
		conds = append(conds, fmt.Sprintf("(effective_to IS NULL OR effective_to > $%d)", len(args)))
	}

	q := fmt.Sprintf("SELECT %s FROM tax_rates WHERE %s", selectCols, strings.Join(conds, " AND "))
	return q, args
}

func (r *taxRateRepository) List(ctx context.Context, filter *types.TaxRateFilter) ([]*taxrate.TaxRate, error) {
	if filter == nil {
		filter = types.NewDefaultTaxRateFilter()
	}

	q, args := r.buildListQuery(ctx, filter, taxRateCols)
	q += " ORDER BY priority ASC, created_at DESC"
	if !filter.IsUnlimited() {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var rows []taxRateRow
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tax rates").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*taxrate.TaxRate, 0, len(rows))
	for i := range rows {
		rate, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		// service-type wildcard matching happens in Go, same reasoning as
		// tax categories
		if filter.ServiceType != "" && !rate.AppliesToServiceType(filter.ServiceType) {
			continue
		}
		result = append(result, rate)
	}
	return result, nil
}

func (r *taxRateRepository) ListAll(ctx context.Context, filter *types.TaxRateFilter) ([]*taxrate.TaxRate, error) {
	if filter == nil {
		return r.List(ctx, types.NewNoLimitTaxRateFilter())
	}
	unlimited := &types.TaxRateFilter{
		QueryFilter:     types.NewNoLimitQueryFilter(),
		TimeRangeFilter: filter.TimeRangeFilter,
		TaxRateIDs:      filter.TaxRateIDs,
		TaxRateCodes:    filter.TaxRateCodes,
		JurisdictionIDs: filter.JurisdictionIDs,
		CategoryIDs:     filter.CategoryIDs,
		TaxTypes:        filter.TaxTypes,
		ServiceType:     filter.ServiceType,
		EffectiveOn:     filter.EffectiveOn,
	}
	return r.List(ctx, unlimited)
}

func (r *taxRateRepository) Count(ctx context.Context, filter *types.TaxRateFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultTaxRateFilter()
	}

	q, args := r.buildListQuery(ctx, filter, "COUNT(*)")

	var count int
	if err := r.db.Querier(ctx).GetContext(ctx, &count, q, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count tax rates").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *taxRateRepository) Update(ctx context.Context, rate *taxrate.TaxRate) error {
	row, err := r.toRow(rate)
	if err != nil {
		return err
	}

	const q = `UPDATE tax_rates SET
		name = :name, code = :code, description = :description,
		jurisdiction_id = :jurisdiction_id, category_id = :category_id,
		tax_type = :tax_type, rate_type = :rate_type,
		percentage_rate = :percentage_rate, fixed_amount = :fixed_amount,
		minimum_threshold = :minimum_threshold,
		maximum_amount = :maximum_amount, tiers = :tiers,
		calculation_method = :calculation_method,
		authority_name = :authority_name, service_types = :service_types,
		effective_from = :effective_from, effective_to = :effective_to,
		priority = :priority, tax_rate_status = :tax_rate_status,
		metadata = :metadata, status = :status, updated_at = :updated_at,
		updated_by = :updated_by
	WHERE id = :id AND tenant_id = :tenant_id`

	res, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tax rate").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("tax rate not found").
			WithHintf("Tax rate with ID %s was not found", rate.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// Delete archives a tax rate; rates are never hard-deleted
func (r *taxRateRepository) Delete(ctx context.Context, rate *taxrate.TaxRate) error {
	rate.Status = types.StatusArchived
	return r.Update(ctx, rate)
}

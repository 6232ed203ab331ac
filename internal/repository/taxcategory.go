package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

type taxCategoryRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewTaxCategoryRepository creates a postgres-backed tax category repository
func NewTaxCategoryRepository(db postgres.IClient, logger *logger.Logger) taxcategory.Repository {
	return &taxCategoryRepository{
		db:     db,
		logger: logger,
	}
}

type taxCategoryRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	ServiceTypes []byte `db:"service_types"`
	Taxable      bool   `db:"taxable"`
	Priority     int    `db:"priority"`
	types.BaseModel
}

func (r *taxCategoryRepository) toRow(c *taxcategory.TaxCategory) (*taxCategoryRow, error) {
	serviceTypes, err := marshalJSONB(c.ServiceTypes)
	if err != nil {
		return nil, err
	}
	return &taxCategoryRow{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		ServiceTypes: serviceTypes,
		Taxable:      c.Taxable,
		Priority:     c.Priority,
		BaseModel:    c.BaseModel,
	}, nil
}

func (r *taxCategoryRepository) fromRow(row *taxCategoryRow) (*taxcategory.TaxCategory, error) {
	var serviceTypes []string
	if err := unmarshalJSONB(row.ServiceTypes, &serviceTypes); err != nil {
		return nil, err
	}
	return &taxcategory.TaxCategory{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		ServiceTypes: serviceTypes,
		Taxable:      row.Taxable,
		Priority:     row.Priority,
		BaseModel:    row.BaseModel,
	}, nil
}

func (r *taxCategoryRepository) Create(ctx context.Context, c *taxcategory.TaxCategory) error {
	row, err := r.toRow(c)
	if err != nil {
		return err
	}

	const q = `INSERT INTO tax_categories (
		id, name, description, service_types, taxable, priority, tenant_id,
		status, created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :name, :description, :service_types, :taxable, :priority,
		:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create tax category").
			WithReportableDetails(map[string]any{
				"category_id": c.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *taxCategoryRepository) Get(ctx context.Context, id string) (*taxcategory.TaxCategory, error) {
	const q = `SELECT id, name, description, service_types, taxable, priority,
		tenant_id, status, created_at, updated_at, created_by, updated_by
	FROM tax_categories
	WHERE id = $1 AND tenant_id = $2`

	var row taxCategoryRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, q, id, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("tax category not found").
				WithHintf("Tax category with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get tax category").
			Mark(ierr.ErrDatabase)
	}

	return r.fromRow(&row)
}

func (r *taxCategoryRepository) buildListQuery(ctx context.Context, filter *types.TaxCategoryFilter, selectCols string) (string, []interface{}) {
	var (
		conds = []string{"tenant_id = $1", "status = $2"}
		args  = []interface{}{types.GetTenantID(ctx), filter.GetStatus().String()}
	)

	if filter.Taxable != nil {
		args = append(args, *filter.Taxable)
		conds = append(conds, fmt.Sprintf("taxable = $%d", len(args)))
	}

	q := fmt.Sprintf("SELECT %s FROM tax_categories WHERE %s", selectCols, strings.Join(conds, " AND "))
	return q, args
}

func (r *taxCategoryRepository) List(ctx context.Context, filter *types.TaxCategoryFilter) ([]*taxcategory.TaxCategory, error) {
	if filter == nil {
		filter = types.NewDefaultTaxCategoryFilter()
	}

	const cols = `id, name, description, service_types, taxable, priority,
		tenant_id, status, created_at, updated_at, created_by, updated_by`

	q, args := r.buildListQuery(ctx, filter, cols)
	q += " ORDER BY priority ASC, created_at DESC"
	if !filter.IsUnlimited() {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var rows []taxCategoryRow
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tax categories").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*taxcategory.TaxCategory, 0, len(rows))
	for i := range rows {
		c, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		// service-type matching happens in Go; jsonb containment queries
		// would tie the wildcard rule to the storage engine
		if filter.ServiceType != "" && !c.MatchesServiceType(filter.ServiceType) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *taxCategoryRepository) Count(ctx context.Context, filter *types.TaxCategoryFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultTaxCategoryFilter()
	}

	q, args := r.buildListQuery(ctx, filter, "COUNT(*)")

	var count int
	if err := r.db.Querier(ctx).GetContext(ctx, &count, q, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count tax categories").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *taxCategoryRepository) Update(ctx context.Context, c *taxcategory.TaxCategory) error {
	row, err := r.toRow(c)
	if err != nil {
		return err
	}

	const q = `UPDATE tax_categories SET
		name = :name, description = :description,
		service_types = :service_types, taxable = :taxable,
		priority = :priority, status = :status, updated_at = :updated_at,
		updated_by = :updated_by
	WHERE id = :id AND tenant_id = :tenant_id`

	res, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tax category").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("tax category not found").
			WithHintf("Tax category with ID %s was not found", c.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *taxCategoryRepository) Delete(ctx context.Context, c *taxcategory.TaxCategory) error {
	c.Status = types.StatusArchived
	return r.Update(ctx, c)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

type jurisdictionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewJurisdictionRepository creates a postgres-backed jurisdiction repository
func NewJurisdictionRepository(db postgres.IClient, logger *logger.Logger) jurisdiction.Repository {
	return &jurisdictionRepository{
		db:     db,
		logger: logger,
	}
}

type jurisdictionRow struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	AuthorityName    string `db:"authority_name"`
	JurisdictionType string `db:"jurisdiction_type"`
	StateCode        string `db:"state_code"`
	CountyName       string `db:"county_name"`
	CityName         string `db:"city_name"`
	ZipCodes         []byte `db:"zip_codes"`
	Priority         int    `db:"priority"`
	types.BaseModel
}

func (r *jurisdictionRepository) toRow(j *jurisdiction.TaxJurisdiction) (*jurisdictionRow, error) {
	zips, err := marshalJSONB(j.ZipCodes)
	if err != nil {
		return nil, err
	}
	return &jurisdictionRow{
		ID:               j.ID,
		Name:             j.Name,
		AuthorityName:    j.AuthorityName,
		JurisdictionType: j.JurisdictionType.String(),
		StateCode:        j.StateCode,
		CountyName:       j.CountyName,
		CityName:         j.CityName,
		ZipCodes:         zips,
		Priority:         j.Priority,
		BaseModel:        j.BaseModel,
	}, nil
}

func (r *jurisdictionRepository) fromRow(row *jurisdictionRow) (*jurisdiction.TaxJurisdiction, error) {
	var zips []string
	if err := unmarshalJSONB(row.ZipCodes, &zips); err != nil {
		return nil, err
	}
	return &jurisdiction.TaxJurisdiction{
		ID:               row.ID,
		Name:             row.Name,
		AuthorityName:    row.AuthorityName,
		JurisdictionType: types.JurisdictionType(row.JurisdictionType),
		StateCode:        row.StateCode,
		CountyName:       row.CountyName,
		CityName:         row.CityName,
		ZipCodes:         zips,
		Priority:         row.Priority,
		BaseModel:        row.BaseModel,
	}, nil
}

func (r *jurisdictionRepository) Create(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	row, err := r.toRow(j)
	if err != nil {
		return err
	}

	const q = `INSERT INTO tax_jurisdictions (
		id, name, authority_name, jurisdiction_type, state_code, county_name,
		city_name, zip_codes, priority, tenant_id, status, created_at,
		updated_at, created_by, updated_by
	) VALUES (
		:id, :name, :authority_name, :jurisdiction_type, :state_code,
		:county_name, :city_name, :zip_codes, :priority, :tenant_id, :status,
		:created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create jurisdiction").
			WithReportableDetails(map[string]any{
				"jurisdiction_id": j.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *jurisdictionRepository) Get(ctx context.Context, id string) (*jurisdiction.TaxJurisdiction, error) {
	const q = `SELECT id, name, authority_name, jurisdiction_type, state_code,
		county_name, city_name, zip_codes, priority, tenant_id, status,
		created_at, updated_at, created_by, updated_by
	FROM tax_jurisdictions
	WHERE id = $1 AND tenant_id = $2`

	var row jurisdictionRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, q, id, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("jurisdiction not found").
				WithHintf("Jurisdiction with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"jurisdiction_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get jurisdiction").
			Mark(ierr.ErrDatabase)
	}

	return r.fromRow(&row)
}

func (r *jurisdictionRepository) buildListQuery(ctx context.Context, filter *types.JurisdictionFilter, selectCols string) (string, []interface{}) {
	var (
		conds = []string{"tenant_id = $1", "status = $2"}
		args  = []interface{}{types.GetTenantID(ctx), filter.GetStatus().String()}
	)

	if filter.JurisdictionType != "" {
		args = append(args, filter.JurisdictionType.String())
		conds = append(conds, fmt.Sprintf("jurisdiction_type = $%d", len(args)))
	}
	if filter.StateCode != "" {
		args = append(args, filter.StateCode)
		conds = append(conds, fmt.Sprintf("state_code = $%d", len(args)))
	}
	if len(filter.JurisdictionIDs) > 0 {
		ids, err := marshalJSONB(filter.JurisdictionIDs)
		if err == nil {
			args = append(args, string(ids))
			conds = append(conds, fmt.Sprintf("id IN (SELECT jsonb_array_elements_text($%d::jsonb))", len(args)))
		}
	}

	q := fmt.Sprintf("SELECT %s FROM tax_jurisdictions WHERE %s", selectCols, strings.Join(conds, " AND "))
	return q, args
}

func (r *jurisdictionRepository) List(ctx context.Context, filter *types.JurisdictionFilter) ([]*jurisdiction.TaxJurisdiction, error) {
	if filter == nil {
		filter = types.NewDefaultJurisdictionFilter()
	}

	const cols = `id, name, authority_name, jurisdiction_type, state_code,
		county_name, city_name, zip_codes, priority, tenant_id, status,
		created_at, updated_at, created_by, updated_by`

	q, args := r.buildListQuery(ctx, filter, cols)
	q += " ORDER BY priority ASC, created_at DESC"
	if !filter.IsUnlimited() {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var rows []jurisdictionRow
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list jurisdictions").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*jurisdiction.TaxJurisdiction, 0, len(rows))
	for i := range rows {
		j, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, nil
}

func (r *jurisdictionRepository) Count(ctx context.Context, filter *types.JurisdictionFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultJurisdictionFilter()
	}

	q, args := r.buildListQuery(ctx, filter, "COUNT(*)")

	var count int
	if err := r.db.Querier(ctx).GetContext(ctx, &count, q, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count jurisdictions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *jurisdictionRepository) Update(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	row, err := r.toRow(j)
	if err != nil {
		return err
	}

	const q = `UPDATE tax_jurisdictions SET
		name = :name, authority_name = :authority_name,
		jurisdiction_type = :jurisdiction_type, state_code = :state_code,
		county_name = :county_name, city_name = :city_name,
		zip_codes = :zip_codes, priority = :priority, status = :status,
		updated_at = :updated_at, updated_by = :updated_by
	WHERE id = :id AND tenant_id = :tenant_id`

	res, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update jurisdiction").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("jurisdiction not found").
			WithHintf("Jurisdiction with ID %s was not found", j.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *jurisdictionRepository) Delete(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	j.Status = types.StatusArchived
	return r.Update(ctx, j)
}

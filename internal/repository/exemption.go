package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

type exemptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewExemptionRepository creates a postgres-backed exemption repository
func NewExemptionRepository(db postgres.IClient, logger *logger.Logger) exemption.Repository {
	return &exemptionRepository{
		db:     db,
		logger: logger,
	}
}

type exemptionRow struct {
	ID                  string          `db:"id"`
	ClientID            string          `db:"client_id"`
	JurisdictionID      *string         `db:"jurisdiction_id"`
	ApplicableTaxTypes  []byte          `db:"applicable_tax_types"`
	IsBlanketExemption  bool            `db:"is_blanket_exemption"`
	ExemptionPercentage decimal.Decimal `db:"exemption_percentage"`
	CertificateNumber   string          `db:"certificate_number"`
	ExemptionStatus     string          `db:"exemption_status"`
	ExpiresAt           *time.Time      `db:"expires_at"`
	Priority            int             `db:"priority"`
	types.BaseModel
}

func (r *exemptionRepository) toRow(e *exemption.TaxExemption) (*exemptionRow, error) {
	taxTypes, err := marshalJSONB(e.ApplicableTaxTypes)
	if err != nil {
		return nil, err
	}

	return &exemptionRow{
		ID:                  e.ID,
		ClientID:            e.ClientID,
		JurisdictionID:      e.JurisdictionID,
		ApplicableTaxTypes:  taxTypes,
		IsBlanketExemption:  e.IsBlanketExemption,
		ExemptionPercentage: e.ExemptionPercentage,
		CertificateNumber:   e.CertificateNumber,
		ExemptionStatus:     string(e.ExemptionStatus),
		ExpiresAt:           e.ExpiresAt,
		Priority:            e.Priority,
		BaseModel:           e.BaseModel,
	}, nil
}

func (r *exemptionRepository) fromRow(row *exemptionRow) (*exemption.TaxExemption, error) {
	var taxTypes []string
	if err := unmarshalJSONB(row.ApplicableTaxTypes, &taxTypes); err != nil {
		return nil, err
	}

	return &exemption.TaxExemption{
		ID:                  row.ID,
		ClientID:            row.ClientID,
		JurisdictionID:      row.JurisdictionID,
		ApplicableTaxTypes:  taxTypes,
		IsBlanketExemption:  row.IsBlanketExemption,
		ExemptionPercentage: row.ExemptionPercentage,
		CertificateNumber:   row.CertificateNumber,
		ExemptionStatus:     types.ExemptionStatus(row.ExemptionStatus),
		ExpiresAt:           row.ExpiresAt,
		Priority:            row.Priority,
		BaseModel:           row.BaseModel,
	}, nil
}

const exemptionCols = `id, client_id, jurisdiction_id, applicable_tax_types,
	is_blanket_exemption, exemption_percentage, certificate_number,
	exemption_status, expires_at, priority, tenant_id, status, created_at,
	updated_at, created_by, updated_by`

func (r *exemptionRepository) Create(ctx context.Context, e *exemption.TaxExemption) error {
	row, err := r.toRow(e)
	if err != nil {
		return err
	}

	const q = `INSERT INTO tax_exemptions (
		id, client_id, jurisdiction_id, applicable_tax_types,
		is_blanket_exemption, exemption_percentage, certificate_number,
		exemption_status, expires_at, priority, tenant_id, status,
		created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :client_id, :jurisdiction_id, :applicable_tax_types,
		:is_blanket_exemption, :exemption_percentage, :certificate_number,
		:exemption_status, :expires_at, :priority, :tenant_id, :status,
		:created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create exemption").
			WithReportableDetails(map[string]any{
				"exemption_id": e.ID,
				"client_id":    e.ClientID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *exemptionRepository) Get(ctx context.Context, id string) (*exemption.TaxExemption, error) {
	q := fmt.Sprintf("SELECT %s FROM tax_exemptions WHERE id = $1 AND tenant_id = $2", exemptionCols)

	var row exemptionRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, q, id, types.GetTenantID(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("exemption not found").
				WithHintf("Exemption with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"exemption_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get exemption").
			Mark(ierr.ErrDatabase)
	}

	return r.fromRow(&row)
}

func (r *exemptionRepository) buildListQuery(ctx context.Context, filter *types.ExemptionFilter, selectCols string) (string, []interface{}) {
	var (
		conds = []string{"tenant_id = $1", "status = $2"}
		args  = []interface{}{types.GetTenantID(ctx), filter.GetStatus().String()}
	)

	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.ExemptionStatus != "" {
		args = append(args, string(filter.ExemptionStatus))
		conds = append(conds, fmt.Sprintf("exemption_status = $%d", len(args)))
	}
	for _, cond := range []struct {
		col    string
		values []string
	}{
		{"id", filter.ExemptionIDs},
		{"jurisdiction_id", filter.JurisdictionIDs},
	} {
		if len(cond.values) == 0 {
			continue
		}
		placeholders := make([]string, len(cond.values))
		for i, v := range cond.values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", cond.col, strings.Join(placeholders, ", ")))
	}

	q := fmt.Sprintf("SELECT %s FROM tax_exemptions WHERE %s", selectCols, strings.Join(conds, " AND "))
	return q, args
}

func (r *exemptionRepository) List(ctx context.Context, filter *types.ExemptionFilter) ([]*exemption.TaxExemption, error) {
	if filter == nil {
		filter = types.NewDefaultExemptionFilter()
	}

	q, args := r.buildListQuery(ctx, filter, exemptionCols)
	q += " ORDER BY priority ASC, created_at DESC"
	if !filter.IsUnlimited() {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var rows []exemptionRow
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list exemptions").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*exemption.TaxExemption, 0, len(rows))
	for i := range rows {
		e, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *exemptionRepository) Count(ctx context.Context, filter *types.ExemptionFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultExemptionFilter()
	}

	q, args := r.buildListQuery(ctx, filter, "COUNT(*)")

	var count int
	if err := r.db.Querier(ctx).GetContext(ctx, &count, q, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count exemptions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *exemptionRepository) Update(ctx context.Context, e *exemption.TaxExemption) error {
	row, err := r.toRow(e)
	if err != nil {
		return err
	}

	const q = `UPDATE tax_exemptions SET
		client_id = :client_id, jurisdiction_id = :jurisdiction_id,
		applicable_tax_types = :applicable_tax_types,
		is_blanket_exemption = :is_blanket_exemption,
		exemption_percentage = :exemption_percentage,
		certificate_number = :certificate_number,
		exemption_status = :exemption_status, expires_at = :expires_at,
		priority = :priority, status = :status, updated_at = :updated_at,
		updated_by = :updated_by
	WHERE id = :id AND tenant_id = :tenant_id`

	res, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update exemption").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("exemption not found").
			WithHintf("Exemption with ID %s was not found", e.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// Delete archives an exemption; the usage audit log keeps referencing it
func (r *exemptionRepository) Delete(ctx context.Context, e *exemption.TaxExemption) error {
	e.Status = types.StatusArchived
	return r.Update(ctx, e)
}

type exemptionUsageRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewExemptionUsageRepository creates a postgres-backed exemption usage repository
func NewExemptionUsageRepository(db postgres.IClient, logger *logger.Logger) exemption.UsageRepository {
	return &exemptionUsageRepository{
		db:     db,
		logger: logger,
	}
}

type exemptionUsageRow struct {
	ID            string          `db:"id"`
	ExemptionID   string          `db:"exemption_id"`
	ReferenceType string          `db:"reference_type"`
	ReferenceID   string          `db:"reference_id"`
	LineRef       string          `db:"line_ref"`
	TaxType       string          `db:"tax_type"`
	TaxBefore     decimal.Decimal `db:"tax_before"`
	Reduction     decimal.Decimal `db:"reduction"`
	AppliedAt     time.Time       `db:"applied_at"`
	types.BaseModel
}

func (r *exemptionUsageRepository) fromRow(row *exemptionUsageRow) *exemption.TaxExemptionUsage {
	return &exemption.TaxExemptionUsage{
		ID:            row.ID,
		ExemptionID:   row.ExemptionID,
		ReferenceType: row.ReferenceType,
		ReferenceID:   row.ReferenceID,
		LineRef:       row.LineRef,
		TaxType:       row.TaxType,
		TaxBefore:     row.TaxBefore,
		Reduction:     row.Reduction,
		AppliedAt:     row.AppliedAt,
		BaseModel:     row.BaseModel,
	}
}

// Record appends a usage row. The unique index on (tenant_id, exemption_id,
// reference_type, reference_id, line_ref, tax_type) makes replays a no-op.
func (r *exemptionUsageRepository) Record(ctx context.Context, u *exemption.TaxExemptionUsage) error {
	row := &exemptionUsageRow{
		ID:            u.ID,
		ExemptionID:   u.ExemptionID,
		ReferenceType: u.ReferenceType,
		ReferenceID:   u.ReferenceID,
		LineRef:       u.LineRef,
		TaxType:       u.TaxType,
		TaxBefore:     u.TaxBefore,
		Reduction:     u.Reduction,
		AppliedAt:     u.AppliedAt,
		BaseModel:     u.BaseModel,
	}

	const q = `INSERT INTO tax_exemption_usage (
		id, exemption_id, reference_type, reference_id, line_ref, tax_type,
		tax_before, reduction, applied_at, tenant_id, status, created_at,
		updated_at, created_by, updated_by
	) VALUES (
		:id, :exemption_id, :reference_type, :reference_id, :line_ref,
		:tax_type, :tax_before, :reduction, :applied_at, :tenant_id,
		:status, :created_at, :updated_at, :created_by, :updated_by
	) ON CONFLICT (tenant_id, exemption_id, reference_type, reference_id, line_ref, tax_type) DO NOTHING`

	res, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record exemption usage").
			WithReportableDetails(map[string]any{
				"exemption_id": u.ExemptionID,
				"reference_id": u.ReferenceID,
			}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.Debugw("exemption usage already recorded",
			"idempotency_key", u.IdempotencyKey())
	}
	return nil
}

func (r *exemptionUsageRepository) ListByExemption(ctx context.Context, exemptionID string) ([]*exemption.TaxExemptionUsage, error) {
	const q = `SELECT id, exemption_id, reference_type, reference_id,
		line_ref, tax_type, tax_before, reduction, applied_at, tenant_id,
		status, created_at, updated_at, created_by, updated_by
	FROM tax_exemption_usage
	WHERE exemption_id = $1 AND tenant_id = $2
	ORDER BY applied_at DESC`

	var rows []exemptionUsageRow
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, exemptionID, types.GetTenantID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list exemption usage").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*exemption.TaxExemptionUsage, 0, len(rows))
	for i := range rows {
		result = append(result, r.fromRow(&rows[i]))
	}
	return result, nil
}

func (r *exemptionUsageRepository) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*exemption.TaxExemptionUsage, error) {
	const q = `SELECT id, exemption_id, reference_type, reference_id,
		line_ref, tax_type, tax_before, reduction, applied_at, tenant_id,
		status, created_at, updated_at, created_by, updated_by
	FROM tax_exemption_usage
	WHERE reference_type = $1 AND reference_id = $2 AND tenant_id = $3
	ORDER BY applied_at DESC`

	var rows []exemptionUsageRow
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, referenceType, referenceID, types.GetTenantID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list exemption usage").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*exemption.TaxExemptionUsage, 0, len(rows))
	for i := range rows {
		result = append(result, r.fromRow(&rows[i]))
	}
	return result, nil
}

package repository

import (
	"context"
	"time"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

type taxRateHistoryRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewTaxRateHistoryRepository creates a postgres-backed tax rate history repository
func NewTaxRateHistoryRepository(db postgres.IClient, logger *logger.Logger) taxrate.HistoryRepository {
	return &taxRateHistoryRepository{
		db:     db,
		logger: logger,
	}
}

type taxRateHistoryRow struct {
	ID         string    `db:"id"`
	TaxRateID  string    `db:"tax_rate_id"`
	ChangeType string    `db:"change_type"`
	OldValues  []byte    `db:"old_values"`
	NewValues  []byte    `db:"new_values"`
	Reason     string    `db:"reason"`
	ActorID    string    `db:"actor_id"`
	ChangedAt  time.Time `db:"changed_at"`
	types.BaseModel
}

func (r *taxRateHistoryRepository) toRow(h *taxrate.TaxRateHistory) (*taxRateHistoryRow, error) {
	oldValues, err := marshalJSONB(h.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := marshalJSONB(h.NewValues)
	if err != nil {
		return nil, err
	}

	return &taxRateHistoryRow{
		ID:         h.ID,
		TaxRateID:  h.TaxRateID,
		ChangeType: string(h.ChangeType),
		OldValues:  oldValues,
		NewValues:  newValues,
		Reason:     h.Reason,
		ActorID:    h.ActorID,
		ChangedAt:  h.ChangedAt,
		BaseModel:  h.BaseModel,
	}, nil
}

func (r *taxRateHistoryRepository) fromRow(row *taxRateHistoryRow) (*taxrate.TaxRateHistory, error) {
	var oldValues, newValues *taxrate.TaxRate
	if err := unmarshalJSONB(row.OldValues, &oldValues); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(row.NewValues, &newValues); err != nil {
		return nil, err
	}

	return &taxrate.TaxRateHistory{
		ID:         row.ID,
		TaxRateID:  row.TaxRateID,
		ChangeType: types.TaxRateChangeType(row.ChangeType),
		OldValues:  oldValues,
		NewValues:  newValues,
		Reason:     row.Reason,
		ActorID:    row.ActorID,
		ChangedAt:  row.ChangedAt,
		BaseModel:  row.BaseModel,
	}, nil
}

// Create appends a history row. History rows are never updated or deleted.
func (r *taxRateHistoryRepository) Create(ctx context.Context, h *taxrate.TaxRateHistory) error {
	row, err := r.toRow(h)
	if err != nil {
		return err
	}

	const q = `INSERT INTO tax_rate_history (
		id, tax_rate_id, change_type, old_values, new_values, reason,
		actor_id, changed_at, tenant_id, status, created_at, updated_at,
		created_by, updated_by
	) VALUES (
		:id, :tax_rate_id, :change_type, :old_values, :new_values, :reason,
		:actor_id, :changed_at, :tenant_id, :status, :created_at,
		:updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, q, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record tax rate history").
			WithReportableDetails(map[string]any{
				"tax_rate_id": h.TaxRateID,
				"change_type": h.ChangeType,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *taxRateHistoryRepository) ListByTaxRate(ctx context.Context, taxRateID string) ([]*taxrate.TaxRateHistory, error) {
	const q = `SELECT id, tax_rate_id, change_type, old_values, new_values,
		reason, actor_id, changed_at, tenant_id, status, created_at,
		updated_at, created_by, updated_by
	FROM tax_rate_history
	WHERE tax_rate_id = $1 AND tenant_id = $2
	ORDER BY changed_at DESC`

	var rows []taxRateHistoryRow
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, q, taxRateID, types.GetTenantID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tax rate history").
			Mark(ierr.ErrDatabase)
	}

	result := make([]*taxrate.TaxRateHistory, 0, len(rows))
	for i := range rows {
		h, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, nil
}

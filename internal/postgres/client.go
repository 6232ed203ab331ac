package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/fx"

	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/types"
)

// Querier is the query surface shared by *sqlx.DB and *sqlx.Tx, so
// repositories run unchanged inside and outside transactions.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// TxFromContext returns the transaction from context if it exists
	TxFromContext(ctx context.Context) *sqlx.Tx

	// Querier returns the current transaction if in a transaction, or the
	// regular database handle
	Querier(ctx context.Context) Querier
}

// Client wraps sqlx.DB to provide transaction management
type Client struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// Module provides an fx.Option to integrate the postgres client with the application
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
	)
}

// NewDB opens the postgres connection pool
func NewDB(cfg *config.Configuration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// NewClient creates a new postgres client wrapper with transaction management
func NewClient(db *sqlx.DB, logger *logger.Logger) IClient {
	return &Client{
		db:     db,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// If we're already in a transaction, reuse it and do not start a new
	// one or commit it
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	// Ensure transaction is rolled back on panic
	defer func() {
		if v := recover(); v != nil {
			c.logger.Errorw("rolling back transaction due to panic",
				"panic", v,
			)
			_ = tx.Rollback()
			panic(v)
		}
	}()

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	if err := fn(txCtx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			c.logger.Errorw("failed to rollback transaction",
				"error", rerr,
				"original_error", err,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// TxFromContext returns the transaction from context if it exists
func (c *Client) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Querier returns the current transaction if in a transaction, or the
// regular database handle
func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

package testutil

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient is a mock implementation of postgres client for testing.
// Services under test persist through in-memory stores, so WithTx just runs
// the function without a real transaction.
type MockPostgresClient struct {
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	return fn(ctx)
}

// TxFromContext returns the transaction from context if it exists
func (c *MockPostgresClient) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Querier returns nil; in-memory repositories never query postgres
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

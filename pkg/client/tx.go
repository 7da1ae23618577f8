package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// TxOption overrides a transaction default from the configuration.
type TxOption func(*builder.TxConfig)

// WithMaxWait bounds acquiring a connection and beginning the transaction.
func WithMaxWait(d time.Duration) TxOption {
	return func(c *builder.TxConfig) { c.MaxWait = d }
}

// WithTimeout bounds the whole transaction callback.
func WithTimeout(d time.Duration) TxOption {
	return func(c *builder.TxConfig) { c.Timeout = d }
}

// WithIsolationLevel selects the isolation level.
func WithIsolationLevel(level pgx.TxIsoLevel) TxOption {
	return func(c *builder.TxConfig) { c.Isolation = level }
}

// WithReadOnly starts a read-only transaction.
func WithReadOnly() TxOption {
	return func(c *builder.TxConfig) { c.ReadOnly = true }
}

// Transaction runs fn with a client scoped to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Called
// on a transaction-scoped client it opens a savepoint instead; options are
// then ignored.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Client) error, opts ...TxOption) error {
	run := func(ctx context.Context, tx *builder.Tx) error {
		return fn(ctx, c.scoped(tx))
	}
	if c.tx != nil {
		return builder.RunNested(ctx, c.tx, run)
	}

	b, ok := c.q.(builder.Beginner)
	if !ok {
		return runtime.NewError(runtime.KindValidation, "client cannot start transactions")
	}
	cfg := builder.TxConfig{
		MaxWait:   c.cfg.TxMaxWait,
		Timeout:   c.cfg.TxTimeout,
		Isolation: c.cfg.TxIsolation,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	err := builder.RunInTx(ctx, b, cfg, run)
	if err != nil {
		c.logger.Debug("transaction rolled back",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return err
	}
	c.logger.Debug("transaction committed", slog.Duration("duration", time.Since(start)))
	return nil
}

func (c *Client) scoped(tx *builder.Tx) *Client {
	return newClient(c.db, tx, tx, c.cfg, c.logger)
}

// Operation is one step of a Batch.
type Operation func(ctx context.Context, tx *Client) (any, error)

// Op adapts a typed step to an Operation.
func Op[R any](fn func(ctx context.Context, tx *Client) (R, error)) Operation {
	return func(ctx context.Context, tx *Client) (any, error) {
		return fn(ctx, tx)
	}
}

// Batch runs ops in order inside one transaction and returns their results
// in the same order. The first failure rolls everything back.
func (c *Client) Batch(ctx context.Context, ops ...Operation) ([]any, error) {
	results := make([]any, len(ops))
	err := c.Transaction(ctx, func(ctx context.Context, tx *Client) error {
		for i, op := range ops {
			r, err := op(ctx, tx)
			if err != nil {
				return fmt.Errorf("batch operation %d: %w", i, err)
			}
			results[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

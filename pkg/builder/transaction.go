package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Tx wraps a pgx transaction. It implements Querier, so every builder
// accepts it in place of a DB.
type Tx struct {
	tx     pgx.Tx
	format runtime.ErrorFormat
}

var _ Querier = (*Tx)(nil)

// NewTx wraps an existing pgx transaction.
func NewTx(tx pgx.Tx, format runtime.ErrorFormat) *Tx {
	return &Tx{tx: tx, format: format}
}

// Begin starts a new transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, pgx.TxOptions{})
}

// BeginTx starts a new transaction with custom options.
func (d *DB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (*Tx, error) {
	rt := d.runtimeOrNil()
	tx, err := rt.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, format: rt.ErrorFormat()}, nil
}

// Raw returns the underlying pgx transaction.
func (t *Tx) Raw() pgx.Tx {
	return t.tx
}

// Exec implements Querier.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, runtime.WrapFormat(err, sql, t.format)
	}
	return tag.RowsAffected(), nil
}

// Query implements Querier.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, runtime.WrapFormat(err, sql, t.format)
	}
	return rows, nil
}

// QueryRow implements Querier.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return runtime.WrapRow(t.tx.QueryRow(ctx, sql, args...), sql, t.format)
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return runtime.WrapFormat(fmt.Errorf("failed to commit transaction: %w", err), "COMMIT", t.format)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a closed transaction
// is not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return runtime.WrapFormat(fmt.Errorf("failed to rollback transaction: %w", err), "ROLLBACK", t.format)
	}
	return nil
}

// Begin starts a nested transaction backed by a savepoint.
func (t *Tx) Begin(ctx context.Context) (*Tx, error) {
	tx, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, runtime.WrapFormat(err, "SAVEPOINT", t.format)
	}
	return &Tx{tx: tx, format: t.format}, nil
}

// Savepoint creates a named savepoint within the transaction.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, "SAVEPOINT "+name)
	return err
}

// RollbackToSavepoint rolls back to a named savepoint.
func (t *Tx) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

// ReleaseSavepoint releases a named savepoint.
func (t *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// TxConfig bounds an interactive transaction. Zero durations disable the
// corresponding limit.
type TxConfig struct {
	// MaxWait bounds how long acquiring a connection and BEGIN may take.
	MaxWait time.Duration
	// Timeout bounds the whole callback, commit included.
	Timeout   time.Duration
	Isolation pgx.TxIsoLevel
	ReadOnly  bool
}

// Beginner starts top-level transactions.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (*Tx, error)
}

// RunInTx runs fn inside a transaction, committing when it returns nil and
// rolling back otherwise. Exceeding MaxWait or Timeout yields a Timeout
// error and always rolls back.
func RunInTx(ctx context.Context, b Beginner, cfg TxConfig, fn func(ctx context.Context, tx *Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: cfg.Isolation}
	if cfg.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}

	beginCtx := ctx
	if cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, cfg.MaxWait)
		defer cancel()
	}
	tx, err := b.BeginTx(beginCtx, opts)
	if err != nil {
		if beginCtx.Err() != nil && ctx.Err() == nil {
			return &runtime.Error{
				Kind:    runtime.KindTimeout,
				Message: fmt.Sprintf("unable to start a transaction within %s", cfg.MaxWait),
				Err:     err,
			}
		}
		return err
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return finish(ctx, runCtx, tx, cfg.Timeout, fn)
}

// RunNested runs fn in a savepoint of tx with the same commit and rollback
// rules as RunInTx.
func RunNested(ctx context.Context, tx *Tx, fn func(ctx context.Context, tx *Tx) error) error {
	nested, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	return finish(ctx, ctx, nested, 0, fn)
}

func finish(parent, runCtx context.Context, tx *Tx, timeout time.Duration, fn func(ctx context.Context, tx *Tx) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(parent))
			panic(p)
		}
	}()

	expired := func() error {
		if runCtx.Err() != nil && parent.Err() == nil {
			return &runtime.Error{
				Kind:    runtime.KindTimeout,
				Message: fmt.Sprintf("transaction exceeded its timeout of %s", timeout),
				Err:     runCtx.Err(),
			}
		}
		return nil
	}

	if err := fn(runCtx, tx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(parent))
		if tErr := expired(); tErr != nil {
			return tErr
		}
		return err
	}
	if tErr := expired(); tErr != nil {
		_ = tx.Rollback(context.WithoutCancel(parent))
		return tErr
	}
	if err := tx.Commit(runCtx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(parent))
		if tErr := expired(); tErr != nil {
			return tErr
		}
		return err
	}
	return nil
}

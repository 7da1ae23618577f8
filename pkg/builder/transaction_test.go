package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx    *fakeTx
	delay time.Duration
}

func (b *fakeBeginner) BeginTx(ctx context.Context, _ pgx.TxOptions) (*Tx, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return NewTx(b.tx, runtime.ErrorFormatMinimal), nil
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		err := RunInTx(ctx, b, TxConfig{Timeout: time.Second}, func(context.Context, *Tx) error { return nil })
		if err != nil {
			t.Fatalf("RunInTx() error = %v", err)
		}
		if !b.tx.committed || b.tx.rolledBack {
			t.Errorf("committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		boom := errors.New("boom")
		err := RunInTx(ctx, b, TxConfig{}, func(context.Context, *Tx) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}
		if b.tx.committed || !b.tx.rolledBack {
			t.Errorf("committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
		}
	})

	t.Run("timeout rolls back", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		err := RunInTx(ctx, b, TxConfig{Timeout: 20 * time.Millisecond}, func(ctx context.Context, _ *Tx) error {
			<-ctx.Done()
			return ctx.Err()
		})
		if !errors.Is(err, runtime.ErrTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
		if !b.tx.rolledBack || b.tx.committed {
			t.Errorf("committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
		}
	})

	t.Run("max wait bounds begin", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}, delay: time.Second}
		called := false
		err := RunInTx(ctx, b, TxConfig{MaxWait: 20 * time.Millisecond}, func(context.Context, *Tx) error {
			called = true
			return nil
		})
		if !errors.Is(err, runtime.ErrTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
		if called {
			t.Error("callback ran without a transaction")
		}
	})

	t.Run("panic rolls back", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
			if !b.tx.rolledBack {
				t.Error("expected rollback after panic")
			}
		}()
		_ = RunInTx(ctx, b, TxConfig{}, func(context.Context, *Tx) error { panic("boom") })
	})
}

package builder

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/registry"
	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// DB wraps runtime.DB and provides query builder methods.
type DB struct {
	db *runtime.DB
}

var _ Querier = (*DB)(nil)

// New creates a new query builder DB from a runtime DB.
func New(db *runtime.DB) *DB {
	return &DB{db: db}
}

// Runtime returns the underlying runtime.DB.
func (d *DB) Runtime() *runtime.DB {
	return d.db
}

func (d *DB) runtimeOrNil() *runtime.DB {
	if d == nil {
		return nil
	}
	return d.db
}

// Exec implements Querier.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return d.runtimeOrNil().Exec(ctx, sql, args...)
}

// Query implements Querier.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.runtimeOrNil().Query(ctx, sql, args...)
}

// QueryRow implements Querier.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.runtimeOrNil().QueryRow(ctx, sql, args...)
}

// TableOf returns the registered metadata for T, registering it on first use.
func TableOf[T any]() (*schema.TableMetadata, error) {
	var model T
	return registry.GetType(reflect.TypeOf(model))
}

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[models.Product](db).Where(...).All(ctx)
func Select[T any](q Querier) *SelectQuery[T] {
	table, err := TableOf[T]()
	return &SelectQuery[T]{q: q, table: table, err: err, columns: []string{"*"}}
}

// Insert creates a new type-safe INSERT query.
// Usage: builder.Insert[models.Order](db).Values(order).ExecReturning(ctx)
func Insert[T any](q Querier) *InsertQuery[T] {
	table, err := TableOf[T]()
	return &InsertQuery[T]{q: q, table: table, err: err}
}

// Update creates a new type-safe UPDATE query.
// Usage: builder.Update[models.Product](db).Set("active", false).Where(...).Exec(ctx)
func Update[T any](q Querier) *UpdateQuery[T] {
	table, err := TableOf[T]()
	return &UpdateQuery[T]{q: q, table: table, err: err, sets: make(map[string]any)}
}

// Delete creates a new type-safe DELETE query.
// Usage: builder.Delete[models.Resume](db).Where(...).Exec(ctx)
func Delete[T any](q Querier) *DeleteQuery[T] {
	table, err := TableOf[T]()
	return &DeleteQuery[T]{q: q, table: table, err: err}
}

// Aggregate creates an aggregate (and optionally grouped) query.
func Aggregate[T any](q Querier) *AggregateQuery[T] {
	table, err := TableOf[T]()
	return &AggregateQuery[T]{q: q, table: table, err: err}
}

func validationErr(format string, args ...any) error {
	return runtime.NewError(runtime.KindValidation, format, args...)
}

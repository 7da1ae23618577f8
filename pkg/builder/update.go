package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Set sets a column value for the UPDATE. The value may be Increment or Raw.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	q.sets[column] = value
	return q
}

// SetMap sets multiple column values from a map.
func (q *UpdateQuery[T]) SetMap(values map[string]any) *UpdateQuery[T] {
	for col, val := range values {
		q.sets[col] = val
	}
	return q
}

// Increment atomically adds by to a numeric column.
func (q *UpdateQuery[T]) Increment(column string, by any) *UpdateQuery[T] {
	return q.Set(column, Increment{By: by})
}

// Where adds WHERE conditions.
func (q *UpdateQuery[T]) Where(conditions ...Condition) *UpdateQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments. Columns tagged autoUpdate
// are set to NOW() unless assigned explicitly.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.sets) == 0 {
		return "", nil, validationErr("no columns to update in %s", q.table.Name)
	}

	var sql strings.Builder
	sql.WriteString("UPDATE ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" SET ")

	sets, args := buildSetList(withAutoUpdate(q.table, q.sets), 1, "")
	sql.WriteString(sets)

	if len(q.where) > 0 {
		wb := NewWhereBuilderWithStart(len(args) + 1)
		wb.Add(q.where...)
		whereSQL, whereArgs, err := wb.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// withAutoUpdate returns sets plus NOW() for untouched autoUpdate columns.
func withAutoUpdate(table *schema.TableMetadata, sets map[string]any) map[string]any {
	out := make(map[string]any, len(sets)+1)
	for k, v := range sets {
		out[k] = v
	}
	for _, col := range table.Columns {
		if _, ok := out[col.Name]; col.AutoUpdate && !ok {
			out[col.Name] = Raw("NOW()")
		}
	}
	return out
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
	saved := q.returning
	q.returning = nil
	sql, args, err := q.ToSQL()
	q.returning = saved
	if err != nil {
		return 0, err
	}
	return q.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	results, err := collectRows[T](rows, q.table)
	if err != nil {
		return nil, runtime.Wrap(err, sql)
	}
	return results, nil
}

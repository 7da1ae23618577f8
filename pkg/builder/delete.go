package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Where narrows the rows removed. Without conditions every row goes.
func (q *DeleteQuery[T]) Where(conditions ...Condition) *DeleteQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning lists the columns ExecReturning reads back; "*" when empty.
func (q *DeleteQuery[T]) Returning(columns ...string) *DeleteQuery[T] {
	q.returning = columns
	return q
}

// ToSQL renders the statement including any RETURNING list.
func (q *DeleteQuery[T]) ToSQL() (string, []any, error) {
	return q.build(q.returning)
}

func (q *DeleteQuery[T]) build(returning []string) (string, []any, error) {
	switch {
	case q.err != nil:
		return "", nil, q.err
	case q.table == nil:
		return "", nil, fmt.Errorf("table metadata not available")
	}

	parts := []string{"DELETE FROM " + q.table.Name}
	var args []any
	if len(q.where) > 0 {
		whereSQL, whereArgs, err := NewWhereBuilder().Add(q.where...).Build()
		if err != nil {
			return "", nil, fmt.Errorf("delete from %s: %w", q.table.Name, err)
		}
		parts = append(parts, whereSQL)
		args = whereArgs
	}
	if len(returning) > 0 {
		parts = append(parts, "RETURNING "+strings.Join(returning, ", "))
	}
	return strings.Join(parts, " "), args, nil
}

// Exec runs the DELETE without RETURNING and reports the rows removed.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.build(nil)
	if err != nil {
		return 0, err
	}
	return q.q.Exec(ctx, sql, args...)
}

// ExecReturning runs the DELETE and scans the removed rows.
func (q *DeleteQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	returning := q.returning
	if len(returning) == 0 {
		returning = []string{"*"}
	}
	sql, args, err := q.build(returning)
	if err != nil {
		return nil, err
	}
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	deleted, err := collectRows[T](rows, q.table)
	if err != nil {
		return nil, runtime.Wrap(err, sql)
	}
	return deleted, nil
}

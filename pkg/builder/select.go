package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Columns specifies which columns to select.
func (q *SelectQuery[T]) Columns(cols ...string) *SelectQuery[T] {
	if len(cols) > 0 {
		q.columns = cols
	}
	return q
}

// Where adds WHERE conditions joined by AND unless a condition says otherwise.
func (q *SelectQuery[T]) Where(conditions ...Condition) *SelectQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// And adds an AND condition.
func (q *SelectQuery[T]) And(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *SelectQuery[T]) Or(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// OrderBy adds an ORDER BY clause.
func (q *SelectQuery[T]) OrderBy(column string, direction OrderDirection) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, OrderBy{Column: column, Direction: direction})
	return q
}

// OrderByClauses appends prepared ORDER BY clauses.
func (q *SelectQuery[T]) OrderByClauses(clauses ...OrderBy) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, clauses...)
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery[T]) OrderByAsc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery[T]) OrderByDesc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *SelectQuery[T]) Limit(limit int) *SelectQuery[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery[T]) Offset(offset int) *SelectQuery[T] {
	q.offset = &offset
	return q
}

// DistinctOn keeps the first row of each distinct combination of columns.
// PostgreSQL requires the ORDER BY to start with the same columns, so they
// are prepended to the ordering when missing.
func (q *SelectQuery[T]) DistinctOn(columns ...string) *SelectQuery[T] {
	q.distinctOn = append(q.distinctOn, columns...)
	return q
}

// ForUpdate adds FOR UPDATE lock.
func (q *SelectQuery[T]) ForUpdate() *SelectQuery[T] {
	q.forUpdate = true
	return q
}

// Preload specifies relationship fields to eagerly load, e.g. Preload("Resumes").
func (q *SelectQuery[T]) Preload(relationships ...string) *SelectQuery[T] {
	q.preloads = append(q.preloads, relationships...)
	return q
}

func (q *SelectQuery[T]) effectiveOrder() []OrderBy {
	if len(q.distinctOn) == 0 {
		return q.orderBy
	}
	order := make([]OrderBy, 0, len(q.distinctOn)+len(q.orderBy))
	for i, col := range q.distinctOn {
		if i < len(q.orderBy) && q.orderBy[i].Column == col {
			continue
		}
		order = append(order, OrderBy{Column: col, Direction: Asc})
	}
	return append(order, q.orderBy...)
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("SELECT ")
	if len(q.distinctOn) > 0 {
		sql.WriteString("DISTINCT ON (" + strings.Join(q.distinctOn, ", ") + ") ")
	}
	if len(q.columns) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(q.columns, ", "))
	}
	sql.WriteString(" FROM ")
	sql.WriteString(q.table.Name)

	if len(q.where) > 0 {
		wb := NewWhereBuilder()
		wb.Add(q.where...)
		whereSQL, whereArgs, err := wb.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	writeOrderBy(&sql, q.effectiveOrder())
	if q.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *q.limit)
	}
	if q.offset != nil && *q.offset > 0 {
		fmt.Fprintf(&sql, " OFFSET %d", *q.offset)
	}
	if q.forUpdate {
		sql.WriteString(" FOR UPDATE")
	}
	return sql.String(), args, nil
}

func writeOrderBy(sql *strings.Builder, orderBy []OrderBy) {
	if len(orderBy) == 0 {
		return
	}
	parts := make([]string, len(orderBy))
	for i, order := range orderBy {
		dir := order.Direction
		if dir == "" {
			dir = Asc
		}
		parts[i] = order.Column + " " + string(dir)
		if order.NullsPos != NullsDefault {
			parts[i] += " " + string(order.NullsPos)
		}
	}
	sql.WriteString(" ORDER BY ")
	sql.WriteString(strings.Join(parts, ", "))
}

// All executes the query and returns all results.
func (q *SelectQuery[T]) All(ctx context.Context) ([]T, error) {
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
	if len(q.preloads) > 0 && len(results) > 0 {
		if err := loadRelationships(ctx, q.q, q.table, results, q.preloads); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// First executes the query with LIMIT 1 and returns a NotFound error when
// nothing matches.
func (q *SelectQuery[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)
	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, runtime.NewError(runtime.KindNotFound, "no %s record matches the query", q.table.Name)
	}
	return &results[0], nil
}

// Count executes a COUNT query honoring WHERE, LIMIT and OFFSET.
func (q *SelectQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if q.table == nil {
		return 0, fmt.Errorf("table metadata not available")
	}

	inner := *q
	inner.columns = []string{"1"}
	inner.preloads = nil
	inner.forUpdate = false
	if q.limit == nil && (q.offset == nil || *q.offset == 0) && len(q.distinctOn) == 0 {
		inner.orderBy = nil
	}
	innerSQL, args, err := inner.ToSQL()
	if err != nil {
		return 0, err
	}

	sql := innerSQL
	if q.limit != nil || (q.offset != nil && *q.offset > 0) || len(q.distinctOn) > 0 {
		sql = "SELECT COUNT(*) FROM (" + innerSQL + ") AS sub"
	} else {
		sql = strings.Replace(innerSQL, "SELECT 1", "SELECT COUNT(*)", 1)
	}

	var count int64
	if err := q.q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, runtime.Wrap(err, sql)
	}
	return count, nil
}

// Exists checks if any rows match the query.
func (q *SelectQuery[T]) Exists(ctx context.Context) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	inner := *q
	inner.columns = []string{"1"}
	inner.orderBy = nil
	inner.preloads = nil
	innerSQL, args, err := inner.ToSQL()
	if err != nil {
		return false, err
	}
	sql := "SELECT EXISTS (" + innerSQL + ")"
	var exists bool
	if err := q.q.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, runtime.Wrap(err, sql)
	}
	return exists, nil
}

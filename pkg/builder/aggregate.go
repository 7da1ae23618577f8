package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// AggFunc is an SQL aggregate function.
type AggFunc string

const (
	AggCount AggFunc = "COUNT"
	AggSum   AggFunc = "SUM"
	AggAvg   AggFunc = "AVG"
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
)

// AggregateExpr is one aggregate in the select list.
type AggregateExpr struct {
	Func   AggFunc
	Column string
}

// CountAll is COUNT(*).
func CountAll() AggregateExpr { return AggregateExpr{Func: AggCount, Column: "*"} }

// CountOf counts non-null values of column.
func CountOf(column string) AggregateExpr { return AggregateExpr{Func: AggCount, Column: column} }

// SumOf sums column.
func SumOf(column string) AggregateExpr { return AggregateExpr{Func: AggSum, Column: column} }

// AvgOf averages column.
func AvgOf(column string) AggregateExpr { return AggregateExpr{Func: AggAvg, Column: column} }

// MinOf is the smallest value of column.
func MinOf(column string) AggregateExpr { return AggregateExpr{Func: AggMin, Column: column} }

// MaxOf is the largest value of column.
func MaxOf(column string) AggregateExpr { return AggregateExpr{Func: AggMax, Column: column} }

// SQL renders the aggregate call, usable in HAVING and ORDER BY.
func (a AggregateExpr) SQL() string {
	return fmt.Sprintf("%s(%s)", a.Func, a.Column)
}

// Alias is the result column name, e.g. _sum__price or _count__all.
func (a AggregateExpr) Alias() string {
	col := a.Column
	if col == "*" {
		col = "_all"
	}
	return "_" + strings.ToLower(string(a.Func)) + "__" + strings.TrimPrefix(col, "_")
}

// AggregateQuery computes aggregates, optionally per group.
type AggregateQuery[T any] struct {
	q          Querier
	table      *schema.TableMetadata
	err        error
	aggregates []AggregateExpr
	where      []Condition
	groupBy    []string
	having     []Condition
	orderBy    []OrderBy
	limit      *int
	offset     *int
}

// AggregateRow holds one result row keyed by column name.
type AggregateRow struct {
	Group map[string]any
	Count map[string]int64
	Sum   map[string]any
	Avg   map[string]any
	Min   map[string]any
	Max   map[string]any
}

// Select adds aggregates to compute.
func (q *AggregateQuery[T]) Select(aggregates ...AggregateExpr) *AggregateQuery[T] {
	q.aggregates = append(q.aggregates, aggregates...)
	return q
}

// Where adds WHERE conditions.
func (q *AggregateQuery[T]) Where(conditions ...Condition) *AggregateQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// GroupBy groups results by columns.
func (q *AggregateQuery[T]) GroupBy(columns ...string) *AggregateQuery[T] {
	q.groupBy = append(q.groupBy, columns...)
	return q
}

// Having filters groups; use AggregateExpr.SQL() as the condition column.
func (q *AggregateQuery[T]) Having(conditions ...Condition) *AggregateQuery[T] {
	q.having = append(q.having, conditions...)
	return q
}

// OrderBy orders groups, or the rows fed to an ungrouped aggregate.
func (q *AggregateQuery[T]) OrderBy(clauses ...OrderBy) *AggregateQuery[T] {
	q.orderBy = append(q.orderBy, clauses...)
	return q
}

// Limit limits groups, or the rows fed to an ungrouped aggregate.
func (q *AggregateQuery[T]) Limit(limit int) *AggregateQuery[T] {
	q.limit = &limit
	return q
}

// Offset skips groups, or rows fed to an ungrouped aggregate.
func (q *AggregateQuery[T]) Offset(offset int) *AggregateQuery[T] {
	q.offset = &offset
	return q
}

// ToSQL generates the aggregate SQL and arguments.
func (q *AggregateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.aggregates) == 0 && len(q.groupBy) == 0 {
		return "", nil, validationErr("aggregate on %s selects nothing", q.table.Name)
	}

	selectList := append([]string(nil), q.groupBy...)
	for _, agg := range q.aggregates {
		selectList = append(selectList, fmt.Sprintf(`%s AS "%s"`, agg.SQL(), agg.Alias()))
	}

	var args []any
	wb := NewWhereBuilder()
	wb.Add(q.where...)
	whereSQL, whereArgs, err := wb.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	args = append(args, whereArgs...)

	var sql strings.Builder
	windowed := len(q.groupBy) == 0 && (q.limit != nil || q.offset != nil)
	sql.WriteString("SELECT " + strings.Join(selectList, ", ") + " FROM ")
	if windowed {
		sql.WriteString("(SELECT * FROM " + q.table.Name)
		if whereSQL != "" {
			sql.WriteString(" " + whereSQL)
		}
		q.writeWindow(&sql)
		sql.WriteString(") AS sub")
		return sql.String(), args, nil
	}

	sql.WriteString(q.table.Name)
	if whereSQL != "" {
		sql.WriteString(" " + whereSQL)
	}
	if len(q.groupBy) > 0 {
		sql.WriteString(" GROUP BY " + strings.Join(q.groupBy, ", "))
	}
	if len(q.having) > 0 {
		hb := NewWhereBuilderWithStart(len(args) + 1)
		hb.Add(q.having...)
		havingSQL, havingArgs, err := hb.BuildHaving()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build HAVING clause: %w", err)
		}
		sql.WriteString(" " + havingSQL)
		args = append(args, havingArgs...)
	}
	// An ungrouped aggregate without a window is one row, so ordering is dropped.
	if len(q.groupBy) > 0 {
		q.writeWindow(&sql)
	}
	return sql.String(), args, nil
}

func (q *AggregateQuery[T]) writeWindow(sql *strings.Builder) {
	writeOrderBy(sql, q.orderBy)
	if q.limit != nil {
		fmt.Fprintf(sql, " LIMIT %d", *q.limit)
	}
	if q.offset != nil && *q.offset > 0 {
		fmt.Fprintf(sql, " OFFSET %d", *q.offset)
	}
}

// Rows executes the query and returns one AggregateRow per result row.
func (q *AggregateQuery[T]) Rows(ctx context.Context) ([]AggregateRow, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := ScanMaps(rows)
	if err != nil {
		return nil, runtime.Wrap(err, sql)
	}

	out := make([]AggregateRow, len(maps))
	for i, m := range maps {
		out[i] = q.toRow(m)
	}
	return out, nil
}

// One executes an ungrouped aggregate and returns its single row.
func (q *AggregateQuery[T]) One(ctx context.Context) (AggregateRow, error) {
	if len(q.groupBy) > 0 {
		return AggregateRow{}, validationErr("One called on a grouped aggregate")
	}
	rows, err := q.Rows(ctx)
	if err != nil {
		return AggregateRow{}, err
	}
	if len(rows) == 0 {
		return q.toRow(nil), nil
	}
	return rows[0], nil
}

func (q *AggregateQuery[T]) toRow(m map[string]any) AggregateRow {
	row := AggregateRow{
		Group: make(map[string]any, len(q.groupBy)),
		Count: make(map[string]int64),
		Sum:   make(map[string]any),
		Avg:   make(map[string]any),
		Min:   make(map[string]any),
		Max:   make(map[string]any),
	}
	for _, col := range q.groupBy {
		row.Group[col] = m[col]
	}
	for _, agg := range q.aggregates {
		key := agg.Column
		if key == "*" {
			key = "_all"
		}
		v := m[agg.Alias()]
		switch agg.Func {
		case AggCount:
			n, _ := v.(int64)
			row.Count[key] = n
		case AggSum:
			row.Sum[key] = v
		case AggAvg:
			row.Avg[key] = v
		case AggMin:
			row.Min[key] = v
		case AggMax:
			row.Max[key] = v
		}
	}
	return row
}

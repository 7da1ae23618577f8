package builder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// OnConflictDoNothing adds ON CONFLICT DO NOTHING clause.
func (q *InsertQuery[T]) OnConflictDoNothing(columns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoNothing}
	return q
}

// OnConflictDoUpdate adds ON CONFLICT (columns) DO UPDATE SET updates.
// Update values may be plain values, Increment, Raw or Excluded.
func (q *InsertQuery[T]) OnConflictDoUpdate(columns []string, updates map[string]any) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoUpdate, Updates: updates}
	return q
}

// ToSQL generates the INSERT SQL and arguments. Rows that leave a column to
// its database default get DEFAULT in that position.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.values) == 0 {
		return "", nil, validationErr("no values to insert into %s", q.table.Name)
	}

	rows := make([]map[string]any, len(q.values))
	present := make(map[string]bool)
	for i, val := range q.values {
		cols, vals, err := structToValues(val, q.table)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		rows[i] = make(map[string]any, len(cols))
		for j, col := range cols {
			rows[i][col] = vals[j]
			present[col] = true
		}
	}
	var columns []string
	for _, col := range q.table.Columns {
		if present[col.Name] {
			columns = append(columns, col.Name)
		}
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)
	if len(columns) == 0 {
		if len(q.values) > 1 {
			return "", nil, validationErr("multi-row insert into %s needs at least one explicit column", q.table.Name)
		}
		sql.WriteString(" DEFAULT VALUES")
	} else {
		sql.WriteString(" (" + strings.Join(columns, ", ") + ") VALUES ")
		clauses := make([]string, len(rows))
		for i, row := range rows {
			placeholders := make([]string, len(columns))
			for j, col := range columns {
				v, ok := row[col]
				if !ok {
					placeholders[j] = "DEFAULT"
					continue
				}
				placeholders[j] = fmt.Sprintf("$%d", paramNum)
				paramNum++
				args = append(args, v)
			}
			clauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
		}
		sql.WriteString(strings.Join(clauses, ", "))
	}

	if oc := q.onConflict; oc != nil {
		sql.WriteString(" ON CONFLICT")
		if len(oc.Columns) > 0 {
			sql.WriteString(" (" + strings.Join(oc.Columns, ", ") + ")")
		}
		switch {
		case oc.Action == DoNothing || len(oc.Updates) == 0 && len(oc.Columns) == 0:
			sql.WriteString(" DO NOTHING")
		case len(oc.Updates) == 0:
			// A no-op assignment still locks and returns the existing row.
			col := oc.Columns[0]
			fmt.Fprintf(&sql, " DO UPDATE SET %s = %s.%s", col, q.table.Name, col)
		default:
			sets, setArgs := buildSetList(oc.Updates, paramNum, q.table.Name+".")
			sql.WriteString(" DO UPDATE SET " + sets)
			args = append(args, setArgs...)
		}
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING " + strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the INSERT and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
	saved := q.returning
	q.returning = nil
	sql, args, err := q.ToSQL()
	q.returning = saved
	if err != nil {
		return 0, err
	}
	return q.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the INSERT and returns the inserted rows.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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

// buildSetList renders "col = value, ..." in column order. qualifier
// prefixes column references on the right-hand side.
func buildSetList(sets map[string]any, paramNum int, qualifier string) (string, []any) {
	columns := make([]string, 0, len(sets))
	for col := range sets {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	parts := make([]string, len(columns))
	var args []any
	for i, col := range columns {
		switch v := sets[col].(type) {
		case Increment:
			parts[i] = fmt.Sprintf("%s = %s%s + $%d", col, qualifier, col, paramNum)
			args = append(args, v.By)
			paramNum++
		case Raw:
			parts[i] = fmt.Sprintf("%s = %s", col, string(v))
		case Excluded:
			parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, string(v))
		default:
			parts[i] = fmt.Sprintf("%s = $%d", col, paramNum)
			args = append(args, v)
			paramNum++
		}
	}
	return strings.Join(parts, ", "), args
}

// Increment adds By to the current column value.
type Increment struct {
	By any
}

// Raw is an SQL expression assigned verbatim, e.g. Raw("NOW()").
type Raw string

// Excluded assigns the value proposed for insertion in ON CONFLICT DO UPDATE.
type Excluded string

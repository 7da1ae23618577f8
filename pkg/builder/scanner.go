package builder

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/marshallshelly/jobstore/pkg/schema"
	"github.com/shopspring/decimal"
)

// scanIntoStruct scans the current row into dest, a pointer to struct.
// Result columns without a mapped field are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}
	destValue = destValue.Elem()

	fields := rows.FieldDescriptions()
	targets := make([]any, len(fields))
	for i, fd := range fields {
		if col := table.GetColumn(fd.Name); col != nil {
			if field := destValue.FieldByName(col.GoField); field.IsValid() && field.CanSet() {
				targets[i] = field.Addr().Interface()
				continue
			}
		}
		var discard any
		targets[i] = &discard
	}

	if err := rows.Scan(targets...); err != nil {
		return fmt.Errorf("failed to scan row into %s: %w", table.Name, err)
	}
	return nil
}

// collectRows scans every row into a []T and closes rows.
func collectRows[T any](rows pgx.Rows, table *schema.TableMetadata) ([]T, error) {
	defer rows.Close()
	results := make([]T, 0)
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ScanAll scans every row into a []T using T's registered metadata and
// closes rows.
func ScanAll[T any](rows pgx.Rows) ([]T, error) {
	table, err := TableOf[T]()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return collectRows[T](rows, table)
}

// ScanMaps reads every row into a column-name keyed map and closes rows.
// NUMERIC values become decimal.Decimal and UUIDs become strings.
func ScanMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts driver-specific values to plain Go types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN || val.InfinityModifier != pgtype.Finite {
			f, _ := val.Float64Value()
			return f.Float64
		}
		return decimal.NewFromBigInt(val.Int, val.Exp)
	case [16]byte:
		return uuid.UUID(val).String()
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	}
	return v
}

// structToValues returns the columns and values to insert for model.
//
// Zero-valued fields are left to the database when the column is serial,
// identity, or has a default. Non-pointer bools are always written since
// false cannot be told apart from unset. Zero autoUUID columns get a new
// random UUID.
func structToValues(model any, table *schema.TableMetadata) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}
	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct")
	}

	var columns []string
	var values []any
	for _, col := range table.Columns {
		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		zero := field.IsZero()

		if zero && col.AutoUUID {
			id, err := newUUIDValue(field.Type())
			if err != nil {
				return nil, nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			columns = append(columns, col.Name)
			values = append(values, id)
			continue
		}
		if zero && (col.AutoIncrement || col.Identity != nil) {
			continue
		}
		if zero && col.Default != nil && field.Kind() != reflect.Bool {
			continue
		}

		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}
	return columns, values, nil
}

func newUUIDValue(t reflect.Type) (any, error) {
	id := uuid.New()
	switch {
	case t.Kind() == reflect.String:
		return id.String(), nil
	case t == reflect.TypeOf(uuid.UUID{}):
		return id, nil
	}
	return nil, fmt.Errorf("autoUUID requires a string or uuid.UUID field, got %s", t)
}

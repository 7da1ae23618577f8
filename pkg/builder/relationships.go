package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/marshallshelly/jobstore/pkg/registry"
	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// LoadRelations fills the named relationship fields of results, e.g. rows
// returned by an UPDATE ... RETURNING.
func LoadRelations[T any](ctx context.Context, q Querier, results []T, fields ...string) error {
	if len(results) == 0 || len(fields) == 0 {
		return nil
	}
	table, err := TableOf[T]()
	if err != nil {
		return err
	}
	return loadRelationships(ctx, q, table, results, fields)
}

// loadRelationships fills the named relationship fields of every element in
// results with one query per relationship.
func loadRelationships[T any](ctx context.Context, q Querier, table *schema.TableMetadata, results []T, preloads []string) error {
	slice := reflect.ValueOf(results)
	for _, fieldName := range preloads {
		rel := table.GetRelationship(fieldName)
		if rel == nil {
			return validationErr("relationship %s not found on %s", fieldName, table.Name)
		}
		target, err := registry.GetType(rel.TargetType)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", fieldName, err)
		}
		switch rel.Type {
		case schema.BelongsTo:
			err = loadBelongsTo(ctx, q, table, target, rel, slice)
		case schema.HasOne, schema.HasMany:
			err = loadHasMany(ctx, q, table, target, rel, slice)
		default:
			err = fmt.Errorf("unsupported relationship type: %s", rel.Type)
		}
		if err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", fieldName, err)
		}
	}
	return nil
}

// loadBelongsTo loads targets referenced by a foreign key on the source rows.
// Example: Order belongsTo Product (orders.product_id -> products.id).
func loadBelongsTo(ctx context.Context, q Querier, source, target *schema.TableMetadata, rel *schema.RelationshipMetadata, results reflect.Value) error {
	fkCol := source.GetColumn(rel.ForeignKey)
	refCol := target.GetColumn(rel.References)
	if fkCol == nil || refCol == nil {
		return fmt.Errorf("columns %s.%s -> %s.%s not mapped", source.Name, rel.ForeignKey, target.Name, rel.References)
	}

	keys := collectKeys(results, fkCol.GoField)
	if len(keys) == 0 {
		return nil
	}
	related, err := fetchRelated(ctx, q, target, refCol.Name, keys)
	if err != nil {
		return err
	}

	byKey := make(map[string]reflect.Value, related.Len())
	for i := 0; i < related.Len(); i++ {
		item := related.Index(i)
		byKey[keyString(item.FieldByName(refCol.GoField))] = item
	}

	for i := 0; i < results.Len(); i++ {
		row := results.Index(i)
		key, ok := keyOf(row.FieldByName(fkCol.GoField))
		if !ok {
			continue
		}
		item, found := byKey[key]
		if !found {
			continue
		}
		assignRelated(row.FieldByName(rel.SourceField), item)
	}
	return nil
}

// loadHasMany loads rows of the target table whose foreign key points at the
// source rows. HasOne keeps the first match.
// Example: JobSeeker hasMany Resume (resumes.job_seeker_id -> job_seekers.id).
func loadHasMany(ctx context.Context, q Querier, source, target *schema.TableMetadata, rel *schema.RelationshipMetadata, results reflect.Value) error {
	refCol := source.GetColumn(rel.References)
	fkCol := target.GetColumn(rel.ForeignKey)
	if fkCol == nil || refCol == nil {
		return fmt.Errorf("columns %s.%s -> %s.%s not mapped", target.Name, rel.ForeignKey, source.Name, rel.References)
	}

	keys := collectKeys(results, refCol.GoField)
	if len(keys) == 0 {
		return nil
	}
	related, err := fetchRelated(ctx, q, target, fkCol.Name, keys)
	if err != nil {
		return err
	}

	grouped := make(map[string][]reflect.Value)
	for i := 0; i < related.Len(); i++ {
		item := related.Index(i)
		key, ok := keyOf(item.FieldByName(fkCol.GoField))
		if ok {
			grouped[key] = append(grouped[key], item)
		}
	}

	for i := 0; i < results.Len(); i++ {
		row := results.Index(i)
		key, _ := keyOf(row.FieldByName(refCol.GoField))
		field := row.FieldByName(rel.SourceField)
		items := grouped[key]

		if rel.Type == schema.HasOne {
			if len(items) > 0 {
				assignRelated(field, items[0])
			}
			continue
		}
		slice := reflect.MakeSlice(field.Type(), 0, len(items))
		for _, item := range items {
			if field.Type().Elem().Kind() == reflect.Ptr {
				ptr := reflect.New(item.Type())
				ptr.Elem().Set(item)
				slice = reflect.Append(slice, ptr)
			} else {
				slice = reflect.Append(slice, item)
			}
		}
		field.Set(slice)
	}
	return nil
}

// fetchRelated runs SELECT * FROM target WHERE column IN (keys) and returns a
// reflect slice of target structs.
func fetchRelated(ctx context.Context, q Querier, target *schema.TableMetadata, column string, keys []any) (reflect.Value, error) {
	wb := NewWhereBuilder()
	wb.Add(In(column, keys))
	whereSQL, args, err := wb.Build()
	if err != nil {
		return reflect.Value{}, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s %s", target.Name, whereSQL)
	if pk := target.PrimaryKeyColumn(); pk != "" {
		sql += " ORDER BY " + pk + " ASC"
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return reflect.Value{}, err
	}
	defer rows.Close()

	out := reflect.MakeSlice(reflect.SliceOf(target.GoType), 0, len(keys))
	for rows.Next() {
		item := reflect.New(target.GoType)
		if err := scanIntoStruct(rows, item.Interface(), target); err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, item.Elem())
	}
	if err := rows.Err(); err != nil {
		return reflect.Value{}, runtime.Wrap(err, sql)
	}
	return out, nil
}

// collectKeys returns the distinct non-null values of a field across results.
func collectKeys(results reflect.Value, goField string) []any {
	seen := make(map[string]bool)
	var keys []any
	for i := 0; i < results.Len(); i++ {
		field := results.Index(i).FieldByName(goField)
		key, ok := keyOf(field)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		for field.Kind() == reflect.Ptr {
			field = field.Elem()
		}
		keys = append(keys, field.Interface())
	}
	return keys
}

// keyOf renders a key field for map lookups; nil pointers and zero values
// have no key.
func keyOf(field reflect.Value) (string, bool) {
	for field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return "", false
		}
		field = field.Elem()
	}
	if !field.IsValid() || field.IsZero() {
		return "", false
	}
	return keyString(field), true
}

func keyString(field reflect.Value) string {
	for field.Kind() == reflect.Ptr && !field.IsNil() {
		field = field.Elem()
	}
	return fmt.Sprint(field.Interface())
}

// assignRelated stores item in a struct or pointer-to-struct field.
func assignRelated(field reflect.Value, item reflect.Value) {
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(item.Type())
		ptr.Elem().Set(item)
		field.Set(ptr)
		return
	}
	field.Set(item)
}

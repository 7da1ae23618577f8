package client

import (
	"context"
	"fmt"
	"reflect"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Create inserts data and returns the stored row, database defaults
// included.
func (d *Delegate[T, U]) Create(ctx context.Context, data T) (*T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	cols, err := selection(table, d.cfg, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := builder.Insert[T](d.q).Values(data).Returning(cols...).ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", table.Name)
	}
	return &rows[0], nil
}

// CreateMany inserts every row of args.Data in one statement.
func (d *Delegate[T, U]) CreateMany(ctx context.Context, args CreateManyArgs[T]) (BatchResult, error) {
	if len(args.Data) == 0 {
		return BatchResult{}, nil
	}
	q := builder.Insert[T](d.q).Values(args.Data...)
	if args.SkipDuplicates {
		q.OnConflictDoNothing()
	}
	n, err := q.Exec(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Count: n}, nil
}

// Update changes the row identified by args.Where and returns it. A missing
// row is a NotFound error.
func (d *Delegate[T, U]) Update(ctx context.Context, args UpdateArgs[U]) (*T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	if err := requireUnique(table, args.Where); err != nil {
		return nil, err
	}
	if err := validateIncludes(table, args.Include); err != nil {
		return nil, err
	}
	sets, err := d.changes(table, args.Data, args.Unset)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return d.FindUniqueOrThrow(ctx, UniqueArgs{Where: args.Where, Select: args.Select, Omit: args.Omit, Include: args.Include})
	}
	cols, err := selection(table, d.cfg, args.Select, args.Omit, args.Include)
	if err != nil {
		return nil, err
	}

	rows, err := builder.Update[T](d.q).SetMap(sets).Where(args.Where...).Returning(returning(cols)...).ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, d.notFound()
	}
	if err := builder.LoadRelations(ctx, d.q, rows, args.Include...); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// UpdateMany changes every row matching args.Where.
func (d *Delegate[T, U]) UpdateMany(ctx context.Context, args UpdateManyArgs[U]) (BatchResult, error) {
	table, err := d.table()
	if err != nil {
		return BatchResult{}, err
	}
	if err := validateConditions(table, args.Where); err != nil {
		return BatchResult{}, err
	}
	sets, err := d.changes(table, args.Data, args.Unset)
	if err != nil {
		return BatchResult{}, err
	}
	if len(sets) == 0 {
		return BatchResult{}, nil
	}
	n, err := builder.Update[T](d.q).SetMap(sets).Where(args.Where...).Exec(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Count: n}, nil
}

// Delete removes the row identified by args.Where and returns it. A missing
// row is a NotFound error.
func (d *Delegate[T, U]) Delete(ctx context.Context, args UniqueArgs) (*T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	if err := requireUnique(table, args.Where); err != nil {
		return nil, err
	}
	if err := validateIncludes(table, args.Include); err != nil {
		return nil, err
	}
	cols, err := selection(table, d.cfg, args.Select, args.Omit, args.Include)
	if err != nil {
		return nil, err
	}
	rows, err := builder.Delete[T](d.q).Where(args.Where...).Returning(returning(cols)...).ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, d.notFound()
	}
	if err := builder.LoadRelations(ctx, d.q, rows, args.Include...); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// DeleteMany removes every row matching where. No conditions deletes all
// rows.
func (d *Delegate[T, U]) DeleteMany(ctx context.Context, where ...builder.Condition) (BatchResult, error) {
	table, err := d.table()
	if err != nil {
		return BatchResult{}, err
	}
	if err := validateConditions(table, where); err != nil {
		return BatchResult{}, err
	}
	n, err := builder.Delete[T](d.q).Where(where...).Exec(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Count: n}, nil
}

// Upsert updates the row identified by args.Where with args.Update, or
// inserts args.Create when no such row exists.
//
// When Where is a single unique equality that args.Create agrees with, a
// single INSERT ... ON CONFLICT statement is used. Otherwise the row is
// looked up first; run inside a transaction to make that atomic.
func (d *Delegate[T, U]) Upsert(ctx context.Context, args UpsertArgs[T, U]) (*T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	if err := requireUnique(table, args.Where); err != nil {
		return nil, err
	}
	if err := validateIncludes(table, args.Include); err != nil {
		return nil, err
	}
	sets, err := d.changes(table, args.Update, nil)
	if err != nil {
		return nil, err
	}
	cols, err := selection(table, d.cfg, args.Select, args.Omit, args.Include)
	if err != nil {
		return nil, err
	}

	if column, ok := conflictTarget(table, args.Where, args.Create); ok {
		if len(sets) > 0 {
			for _, col := range table.Columns {
				if _, set := sets[col.Name]; col.AutoUpdate && !set {
					sets[col.Name] = builder.Raw("NOW()")
				}
			}
		}
		rows, err := builder.Insert[T](d.q).
			Values(args.Create).
			OnConflictDoUpdate([]string{column}, sets).
			Returning(returning(cols)...).
			ExecReturning(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("upsert into %s returned no row", table.Name)
		}
		if err := builder.LoadRelations(ctx, d.q, rows, args.Include...); err != nil {
			return nil, err
		}
		return &rows[0], nil
	}

	unique := UniqueArgs{Where: args.Where, Select: args.Select, Omit: args.Omit, Include: args.Include}
	existing, err := d.FindUnique(ctx, unique)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		created, err := d.Create(ctx, args.Create)
		if err != nil {
			return nil, err
		}
		if len(args.Include) > 0 {
			return d.FindUniqueOrThrow(ctx, unique)
		}
		return created, nil
	}
	return d.Update(ctx, UpdateArgs[U]{
		Where:   args.Where,
		Data:    args.Update,
		Select:  args.Select,
		Omit:    args.Omit,
		Include: args.Include,
	})
}

// changes turns an update payload plus unset columns into a validated SET
// map.
func (d *Delegate[T, U]) changes(table *schema.TableMetadata, data U, unset []string) (map[string]any, error) {
	sets, err := builder.ChangeSet(data)
	if err != nil {
		return nil, invalid("%v", err)
	}
	for _, col := range unset {
		c := table.GetColumn(col)
		if c == nil {
			return nil, invalid("unknown column %q in unset of %s", col, table.Name)
		}
		if !c.Nullable {
			return nil, invalid("column %s.%s is not nullable", table.Name, col)
		}
		sets[col] = nil
	}
	for col := range sets {
		if table.GetColumn(col) == nil {
			return nil, invalid("unknown column %q in data of %s", col, table.Name)
		}
	}
	return sets, nil
}

// conflictTarget reports the unique column usable as an ON CONFLICT target:
// where must be exactly one equality on it and create must carry the same
// value.
func conflictTarget(table *schema.TableMetadata, where []builder.Condition, create any) (string, bool) {
	if len(where) != 1 {
		return "", false
	}
	column, value, ok := uniqueEquality(table, where)
	if !ok {
		return "", false
	}
	col := table.GetColumn(column)
	v := reflect.ValueOf(create)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	field := v.FieldByName(col.GoField)
	if !field.IsValid() {
		return "", false
	}
	for field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return "", false
		}
		field = field.Elem()
	}
	if fmt.Sprint(field.Interface()) != fmt.Sprint(value) {
		return "", false
	}
	return column, true
}

func returning(cols []string) []string {
	if len(cols) == 0 {
		return []string{"*"}
	}
	return cols
}

package client

import (
	"context"
	"slices"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Delegate exposes the operation set for one model. T is the record type
// and U its update payload.
type Delegate[T, U any] struct {
	q   builder.Querier
	cfg *runtime.Config
}

// NewDelegate creates a delegate running against q.
func NewDelegate[T, U any](q builder.Querier, cfg *runtime.Config) *Delegate[T, U] {
	return &Delegate[T, U]{q: q, cfg: cfg}
}

func (d *Delegate[T, U]) table() (*schema.TableMetadata, error) {
	return builder.TableOf[T]()
}

// FindMany returns every row matching args.
func (d *Delegate[T, U]) FindMany(ctx context.Context, args FindArgs) ([]T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	q, reversed, err := d.selectQuery(table, args)
	if err != nil {
		return nil, err
	}
	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if reversed {
		slices.Reverse(rows)
	}
	return rows, nil
}

// FindFirst returns the first row matching args, or nil.
func (d *Delegate[T, U]) FindFirst(ctx context.Context, args FindArgs) (*T, error) {
	if args.Take >= 0 {
		args.Take = 1
	} else {
		args.Take = -1
	}
	rows, err := d.FindMany(ctx, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// FindFirstOrThrow is FindFirst returning a NotFound error instead of nil.
func (d *Delegate[T, U]) FindFirstOrThrow(ctx context.Context, args FindArgs) (*T, error) {
	row, err := d.FindFirst(ctx, args)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, d.notFound()
	}
	return row, nil
}

// FindUnique returns the row identified by a primary key or unique column,
// or nil when it does not exist.
func (d *Delegate[T, U]) FindUnique(ctx context.Context, args UniqueArgs) (*T, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	if err := requireUnique(table, args.Where); err != nil {
		return nil, err
	}
	rows, err := d.FindMany(ctx, FindArgs{
		Where:   args.Where,
		Take:    1,
		Select:  args.Select,
		Omit:    args.Omit,
		Include: args.Include,
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// FindUniqueOrThrow is FindUnique returning a NotFound error instead of nil.
func (d *Delegate[T, U]) FindUniqueOrThrow(ctx context.Context, args UniqueArgs) (*T, error) {
	row, err := d.FindUnique(ctx, args)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, d.notFound()
	}
	return row, nil
}

// Count returns the number of rows matching the filter and window of args.
func (d *Delegate[T, U]) Count(ctx context.Context, args FindArgs) (int64, error) {
	table, err := d.table()
	if err != nil {
		return 0, err
	}
	args.Select, args.Omit, args.Include = nil, nil, nil
	q, _, err := d.selectQuery(table, args)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// selectQuery validates args and builds the SELECT. reversed reports that
// the rows come back in reverse of the requested order.
func (d *Delegate[T, U]) selectQuery(table *schema.TableMetadata, args FindArgs) (*builder.SelectQuery[T], bool, error) {
	if err := validateConditions(table, args.Where); err != nil {
		return nil, false, err
	}
	if err := validateOrder(table, args.OrderBy); err != nil {
		return nil, false, err
	}
	if err := validateColumns(table, "distinct", args.Distinct); err != nil {
		return nil, false, err
	}
	if err := validateIncludes(table, args.Include); err != nil {
		return nil, false, err
	}
	if args.Skip < 0 {
		return nil, false, invalid("skip must not be negative")
	}
	cols, err := selection(table, d.cfg, args.Select, args.Omit, args.Include)
	if err != nil {
		return nil, false, err
	}

	q := builder.Select[T](d.q).Columns(cols...)
	if len(args.Cursor) > 0 && len(args.Where) > 1 {
		// The cursor bound is ANDed onto the whole filter, not its last OR term.
		q.Where(builder.Group(args.Where...))
	} else {
		q.Where(args.Where...)
	}

	order := args.OrderBy
	reversed := args.Take < 0
	if (reversed || len(args.Cursor) > 0) && len(order) == 0 {
		if pk := table.PrimaryKeyColumn(); pk != "" {
			order = []builder.OrderBy{{Column: pk, Direction: builder.Asc}}
		}
	}
	if reversed {
		order = reverseOrder(order)
	}
	if len(args.Cursor) > 0 {
		cond, withTiebreak, err := cursorCondition(table, args.Cursor, order)
		if err != nil {
			return nil, false, err
		}
		q.Where(cond)
		order = withTiebreak
	}
	q.OrderByClauses(order...)

	if len(args.Distinct) > 0 {
		q.DistinctOn(args.Distinct...)
	}
	if args.Take != 0 {
		q.Limit(abs(args.Take))
	}
	if args.Skip > 0 {
		q.Offset(args.Skip)
	}
	if len(args.Include) > 0 {
		q.Preload(args.Include...)
	}
	return q, reversed, nil
}

func (d *Delegate[T, U]) notFound() error {
	table, err := d.table()
	if err != nil {
		return err
	}
	return runtime.NewError(runtime.KindNotFound, "no %s record found", table.Name)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

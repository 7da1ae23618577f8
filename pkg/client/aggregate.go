package client

import (
	"context"
	"slices"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Aggregate computes aggregates over the rows selected by args.
func (d *Delegate[T, U]) Aggregate(ctx context.Context, args AggregateArgs) (AggregateResult, error) {
	table, err := d.table()
	if err != nil {
		return AggregateResult{}, err
	}
	exprs, err := aggregateExprs(table, args.Aggregates)
	if err != nil {
		return AggregateResult{}, err
	}
	if len(exprs) == 0 {
		return AggregateResult{}, invalid("aggregate on %s requests no aggregates", table.Name)
	}
	if err := validateConditions(table, args.Where); err != nil {
		return AggregateResult{}, err
	}
	if err := validateOrder(table, args.OrderBy); err != nil {
		return AggregateResult{}, err
	}

	q := builder.Aggregate[T](d.q).Select(exprs...).Where(args.Where...)
	order := args.OrderBy
	if args.Take < 0 {
		if len(order) == 0 {
			order = []builder.OrderBy{{Column: table.PrimaryKeyColumn()}}
		}
		order = reverseOrder(order)
	}
	q.OrderBy(order...)
	if args.Take != 0 {
		q.Limit(abs(args.Take))
	}
	if args.Skip > 0 {
		q.Offset(args.Skip)
	}
	return q.One(ctx)
}

// GroupBy computes aggregates per distinct combination of args.By.
func (d *Delegate[T, U]) GroupBy(ctx context.Context, args GroupByArgs) ([]AggregateResult, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	if len(args.By) == 0 {
		return nil, invalid("groupBy on %s requires at least one column", table.Name)
	}
	if err := validateColumns(table, "by", args.By); err != nil {
		return nil, err
	}
	exprs, err := aggregateExprs(table, args.Aggregates)
	if err != nil {
		return nil, err
	}
	if err := validateConditions(table, args.Where); err != nil {
		return nil, err
	}
	for _, o := range args.OrderBy {
		if !groupRef(table, args.By, o.Column) {
			return nil, invalid("orderBy %q on %s must be a grouped column or an aggregate", o.Column, table.Name)
		}
	}
	if err := validateHaving(table, args.By, args.Having); err != nil {
		return nil, err
	}
	if (args.Take != 0 || args.Skip != 0) && len(args.OrderBy) == 0 {
		return nil, invalid("groupBy on %s with take or skip requires orderBy", table.Name)
	}

	q := builder.Aggregate[T](d.q).
		Select(exprs...).
		Where(args.Where...).
		GroupBy(args.By...).
		Having(args.Having...)
	order := args.OrderBy
	if args.Take < 0 {
		order = reverseOrder(order)
	}
	q.OrderBy(order...)
	if args.Take != 0 {
		q.Limit(abs(args.Take))
	}
	if args.Skip > 0 {
		q.Offset(args.Skip)
	}
	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if args.Take < 0 {
		slices.Reverse(rows)
	}
	return rows, nil
}

func aggregateExprs(table *schema.TableMetadata, aggs Aggregates) ([]builder.AggregateExpr, error) {
	var exprs []builder.AggregateExpr
	for _, col := range aggs.Count {
		if col == "_all" || col == "*" {
			exprs = append(exprs, builder.CountAll())
			continue
		}
		exprs = append(exprs, builder.CountOf(col))
	}
	for _, group := range []struct {
		cols []string
		fn   func(string) builder.AggregateExpr
	}{
		{aggs.Sum, builder.SumOf},
		{aggs.Avg, builder.AvgOf},
		{aggs.Min, builder.MinOf},
		{aggs.Max, builder.MaxOf},
	} {
		for _, col := range group.cols {
			exprs = append(exprs, group.fn(col))
		}
	}
	for _, e := range exprs {
		if e.Column != "*" && table.GetColumn(e.Column) == nil {
			return nil, invalid("unknown column %q in %s of %s", e.Column, e.Func, table.Name)
		}
	}
	return exprs, nil
}

// groupRef reports whether ref is a grouped column or an aggregate call
// over a column of table, e.g. SUM(total) or COUNT(*).
func groupRef(table *schema.TableMetadata, by []string, ref string) bool {
	if slices.Contains(by, ref) {
		return true
	}
	for _, fn := range []builder.AggFunc{builder.AggCount, builder.AggSum, builder.AggAvg, builder.AggMin, builder.AggMax} {
		prefix := string(fn) + "("
		if len(ref) > len(prefix) && ref[:len(prefix)] == prefix && ref[len(ref)-1] == ')' {
			col := ref[len(prefix) : len(ref)-1]
			return col == "*" && fn == builder.AggCount || table.GetColumn(col) != nil
		}
	}
	return false
}

func validateHaving(table *schema.TableMetadata, by []string, having []builder.Condition) error {
	for _, c := range having {
		if len(c.Group) > 0 {
			if err := validateHaving(table, by, c.Group); err != nil {
				return err
			}
			continue
		}
		if c.Operator == builder.OpExpr {
			continue
		}
		if !groupRef(table, by, c.Column) {
			return invalid("having %q on %s must be a grouped column or an aggregate", c.Column, table.Name)
		}
	}
	return nil
}

package client

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

func invalid(format string, args ...any) error {
	return runtime.NewError(runtime.KindValidation, format, args...)
}

func validateColumns(table *schema.TableMetadata, what string, columns []string) error {
	for _, col := range columns {
		if table.GetColumn(col) == nil {
			return invalid("unknown column %q in %s of %s", col, what, table.Name)
		}
	}
	return nil
}

// validateConditions checks column names of plain conditions. Raw
// expressions are passed through.
func validateConditions(table *schema.TableMetadata, conditions []builder.Condition) error {
	for _, c := range conditions {
		if len(c.Group) > 0 {
			if err := validateConditions(table, c.Group); err != nil {
				return err
			}
			continue
		}
		if c.Operator == builder.OpExpr {
			continue
		}
		if table.GetColumn(c.Column) == nil {
			return invalid("unknown column %q in where of %s", c.Column, table.Name)
		}
	}
	return nil
}

func validateOrder(table *schema.TableMetadata, order []builder.OrderBy) error {
	for _, o := range order {
		if table.GetColumn(o.Column) == nil {
			return invalid("unknown column %q in orderBy of %s", o.Column, table.Name)
		}
	}
	return nil
}

func validateIncludes(table *schema.TableMetadata, include []string) error {
	for _, name := range include {
		if table.GetRelationship(name) == nil {
			return invalid("unknown relationship %q on %s", name, table.Name)
		}
	}
	return nil
}

// uniqueEquality returns the first top-level equality on a primary key or
// unique column. A top-level OR disqualifies the filter.
func uniqueEquality(table *schema.TableMetadata, where []builder.Condition) (string, any, bool) {
	for _, c := range where {
		if c.Logic == builder.LogicOr {
			return "", nil, false
		}
	}
	for _, c := range where {
		if len(c.Group) > 0 || c.Not || c.Operator != builder.OpEqual || c.Value == nil {
			continue
		}
		if table.IsUniqueKey(c.Column) {
			return c.Column, c.Value, true
		}
	}
	return "", nil, false
}

func requireUnique(table *schema.TableMetadata, where []builder.Condition) error {
	if err := validateConditions(table, where); err != nil {
		return err
	}
	if _, _, ok := uniqueEquality(table, where); !ok {
		return invalid("where on %s must include an equality on the primary key or a unique column", table.Name)
	}
	return nil
}

// selection resolves the column list for a read. An explicit selection wins
// over configured omissions. Key columns needed by included relationships
// are added. A nil result means every column.
func selection(table *schema.TableMetadata, cfg *runtime.Config, sel, omit, include []string) ([]string, error) {
	if err := validateColumns(table, "select", sel); err != nil {
		return nil, err
	}
	if err := validateColumns(table, "omit", omit); err != nil {
		return nil, err
	}
	if len(sel) > 0 && len(omit) > 0 {
		return nil, invalid("select and omit cannot be combined on %s", table.Name)
	}

	var cols []string
	switch {
	case len(sel) > 0:
		cols = slices.Clone(sel)
	default:
		hidden := slices.Clone(omit)
		if cfg != nil {
			hidden = append(hidden, cfg.OmittedColumns(table.Name)...)
		}
		if len(hidden) == 0 {
			return nil, nil
		}
		for _, name := range table.ColumnNames() {
			if !slices.Contains(hidden, name) {
				cols = append(cols, name)
			}
		}
	}

	for _, name := range include {
		rel := table.GetRelationship(name)
		if rel == nil {
			continue
		}
		key := rel.References
		if rel.Type == schema.BelongsTo {
			key = rel.ForeignKey
		}
		if !slices.Contains(cols, key) {
			cols = append(cols, key)
		}
	}
	if len(cols) == 0 {
		return nil, invalid("selection on %s is empty", table.Name)
	}
	return cols, nil
}

func reverseOrder(order []builder.OrderBy) []builder.OrderBy {
	out := make([]builder.OrderBy, len(order))
	for i, o := range order {
		dir := o.Direction
		if dir == "" {
			dir = builder.Asc
		}
		o.Direction = dir.Reverse()
		switch o.NullsPos {
		case builder.NullsFirst:
			o.NullsPos = builder.NullsLast
		case builder.NullsLast:
			o.NullsPos = builder.NullsFirst
		}
		out[i] = o
	}
	return out
}

// cursorCondition limits rows to those at or after the cursor row in the
// given ordering. The primary key is appended to the ordering as a
// tiebreaker.
func cursorCondition(table *schema.TableMetadata, cursor map[string]any, order []builder.OrderBy) (builder.Condition, []builder.OrderBy, error) {
	keys := make([]string, 0, len(cursor))
	unique := false
	for k := range cursor {
		keys = append(keys, k)
		if table.GetColumn(k) == nil {
			return builder.Condition{}, nil, invalid("unknown column %q in cursor of %s", k, table.Name)
		}
		if table.IsUniqueKey(k) {
			unique = true
		}
	}
	if !unique {
		return builder.Condition{}, nil, invalid("cursor on %s must include a unique column", table.Name)
	}
	sort.Strings(keys)

	pk := table.PrimaryKeyColumn()
	dir := builder.Asc
	if len(order) > 0 && order[0].Direction != "" {
		dir = order[0].Direction
	}
	for _, o := range order[min(1, len(order)):] {
		d := o.Direction
		if d == "" {
			d = builder.Asc
		}
		if d != dir {
			return builder.Condition{}, nil, invalid("cursor pagination on %s requires a single sort direction", table.Name)
		}
	}
	if pk != "" && !slices.ContainsFunc(order, func(o builder.OrderBy) bool { return o.Column == pk }) {
		order = append(slices.Clone(order), builder.OrderBy{Column: pk, Direction: dir})
	}

	cols := make([]string, len(order))
	for i, o := range order {
		cols[i] = o.Column
	}
	colList := strings.Join(cols, ", ")

	filters := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		filters[i] = k + " = ?"
		args[i] = cursor[k]
	}

	op := ">="
	if dir == builder.Desc {
		op = "<="
	}
	sql := fmt.Sprintf("(%s) %s (SELECT %s FROM %s WHERE %s)",
		colList, op, colList, table.Name, strings.Join(filters, " AND "))
	return builder.Expr(sql, args...), order, nil
}

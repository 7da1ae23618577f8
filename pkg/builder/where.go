package builder

import (
	"fmt"
	"reflect"
	"strings"
)

// WhereBuilder helps build WHERE and HAVING clauses.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a new WhereBuilder numbering parameters from $1.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderWithStart(1)
}

// NewWhereBuilderWithStart creates a new WhereBuilder with a starting parameter number.
func NewWhereBuilderWithStart(paramStart int) *WhereBuilder {
	return &WhereBuilder{paramStart: paramStart}
}

// Add appends conditions, AND-ed unless marked Or.
func (w *WhereBuilder) Add(conditions ...Condition) *WhereBuilder {
	w.conditions = append(w.conditions, conditions...)
	return w
}

// Build generates "WHERE ..." and its arguments, or "" without conditions.
func (w *WhereBuilder) Build() (string, []any, error) {
	return w.build("WHERE ")
}

// BuildHaving generates "HAVING ..." and its arguments.
func (w *WhereBuilder) BuildHaving() (string, []any, error) {
	return w.build("HAVING ")
}

func (w *WhereBuilder) build(keyword string) (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	sql, args, err := buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return keyword + sql, args, nil
}

// buildConditions recursively builds conditions joined by their Logic.
func buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var sb strings.Builder
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		var condSQL string
		var condArgs []any
		var err error
		if len(cond.Group) > 0 {
			condSQL, condArgs, err = buildConditions(cond.Group, paramNum)
			condSQL = "(" + condSQL + ")"
		} else {
			condSQL, condArgs, err = buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}
		if cond.Not {
			condSQL = "NOT (" + condSQL + ")"
		}

		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			sb.WriteString(" " + string(logic) + " ")
		}
		sb.WriteString(condSQL)
		args = append(args, condArgs...)
		paramNum += len(condArgs)
	}
	return sb.String(), args, nil
}

// buildCondition builds a single condition.
func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	column := cond.Column
	if column == "" && cond.Operator != OpExpr {
		return "", nil, validationErr("condition without column")
	}

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpLike, OpILike, OpNotLike, OpArrayContains, OpArrayOverlap:
		if cond.Value == nil {
			return nullComparison(column, cond.Operator)
		}
		return fmt.Sprintf("%s %s $%d", column, cond.Operator, paramNum), []any{cond.Value}, nil

	case OpIn, OpNotIn:
		values, err := toSlice(cond.Value)
		if err != nil {
			return "", nil, validationErr("%s %s: %v", column, cond.Operator, err)
		}
		if len(values) == 0 {
			if cond.Operator == OpIn {
				return "FALSE", nil, nil
			}
			return "TRUE", nil, nil
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), values, nil

	case OpIsNull:
		return column + " IS NULL", nil, nil

	case OpIsNotNull:
		return column + " IS NOT NULL", nil, nil

	case OpBetween:
		values, ok := cond.Value.([]any)
		if !ok || len(values) != 2 {
			return "", nil, validationErr("BETWEEN requires [min, max]")
		}
		return fmt.Sprintf("%s BETWEEN $%d AND $%d", column, paramNum, paramNum+1), values, nil

	case OpExpr:
		args, _ := cond.Value.([]any)
		sql, err := numberPlaceholders(column, paramNum, len(args))
		if err != nil {
			return "", nil, err
		}
		return sql, args, nil
	}
	return "", nil, validationErr("unknown operator: %s", cond.Operator)
}

func nullComparison(column string, op Operator) (string, []any, error) {
	switch op {
	case OpEqual:
		return column + " IS NULL", nil, nil
	case OpNotEqual:
		return column + " IS NOT NULL", nil, nil
	}
	return "", nil, validationErr("%s %s requires a non-nil value", column, op)
}

func toSlice(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		return values, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("requires a slice, got %T", value)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

// numberPlaceholders rewrites ? placeholders to $n starting at paramNum.
func numberPlaceholders(sql string, paramNum, argc int) (string, error) {
	var sb strings.Builder
	n := 0
	for _, ch := range sql {
		if ch == '?' {
			fmt.Fprintf(&sb, "$%d", paramNum+n)
			n++
			continue
		}
		sb.WriteRune(ch)
	}
	if n != argc {
		return "", validationErr("expression %q has %d placeholders but %d arguments", sql, n, argc)
	}
	return sb.String(), nil
}

// Eq creates an equality condition. A nil value becomes IS NULL.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value}
}

// NotEq creates a not-equal condition. A nil value becomes IS NOT NULL.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThanOrEqual, Value: value}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThan, Value: value}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThanOrEqual, Value: value}
}

// In creates an IN condition from any slice.
func In(column string, values any) Condition {
	return Condition{Column: column, Operator: OpIn, Value: values}
}

// NotIn creates a NOT IN condition from any slice.
func NotIn(column string, values any) Condition {
	return Condition{Column: column, Operator: OpNotIn, Value: values}
}

// Like creates a LIKE condition.
func Like(column, pattern string) Condition {
	return Condition{Column: column, Operator: OpLike, Value: pattern}
}

// ILike creates an ILIKE condition (case-insensitive).
func ILike(column, pattern string) Condition {
	return Condition{Column: column, Operator: OpILike, Value: pattern}
}

// NotLike creates a NOT LIKE condition.
func NotLike(column, pattern string) Condition {
	return Condition{Column: column, Operator: OpNotLike, Value: pattern}
}

// Contains matches a case-insensitive substring.
func Contains(column, substr string) Condition {
	return ILike(column, "%"+escapeLike(substr)+"%")
}

// StartsWith matches a case-insensitive prefix.
func StartsWith(column, prefix string) Condition {
	return ILike(column, escapeLike(prefix)+"%")
}

// EndsWith matches a case-insensitive suffix.
func EndsWith(column, suffix string) Condition {
	return ILike(column, "%"+escapeLike(suffix))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNull}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull}
}

// Between creates a BETWEEN condition.
func Between(column string, min, max any) Condition {
	return Condition{Column: column, Operator: OpBetween, Value: []any{min, max}}
}

// ArrayContains matches rows whose array column contains every given element.
func ArrayContains(column string, values any) Condition {
	return Condition{Column: column, Operator: OpArrayContains, Value: values}
}

// ArrayOverlap matches rows whose array column shares an element with values.
func ArrayOverlap(column string, values any) Condition {
	return Condition{Column: column, Operator: OpArrayOverlap, Value: values}
}

// Expr embeds raw SQL with ? placeholders.
func Expr(sql string, args ...any) Condition {
	return Condition{Column: sql, Operator: OpExpr, Value: args}
}

// Or joins the condition to the previous one with OR.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = !cond.Not
	return cond
}

// Group creates a parenthesized group of conditions.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions}
}

// AnyOf is a group whose conditions are joined with OR.
func AnyOf(conditions ...Condition) Condition {
	group := make([]Condition, len(conditions))
	for i, c := range conditions {
		c.Logic = LogicOr
		group[i] = c
	}
	return Group(group...)
}

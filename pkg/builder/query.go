// Package builder provides a type-safe query builder for PostgreSQL.
package builder

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Querier is the subset of a pool or transaction the builders run against.
// Implementations must return classified *runtime.Error values.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	q          Querier
	table      *schema.TableMetadata
	err        error
	columns    []string
	where      []Condition
	orderBy    []OrderBy
	limit      *int
	offset     *int
	distinctOn []string
	forUpdate  bool
	preloads   []string
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	q          Querier
	table      *schema.TableMetadata
	err        error
	values     []T
	returning  []string
	onConflict *OnConflict
}

// UpdateQuery represents an UPDATE query.
type UpdateQuery[T any] struct {
	q         Querier
	table     *schema.TableMetadata
	err       error
	sets      map[string]any
	where     []Condition
	returning []string
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	q         Querier
	table     *schema.TableMetadata
	err       error
	where     []Condition
	returning []string
}

// Condition represents a WHERE/HAVING condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
	NullsPos  NullsPosition
}

// OnConflict represents an ON CONFLICT clause for upserts.
type OnConflict struct {
	Columns []string
	Action  ConflictAction
	Updates map[string]any
}

// Operator represents a comparison operator.
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT IN"
	OpLike               Operator = "LIKE"
	OpILike              Operator = "ILIKE"
	OpNotLike            Operator = "NOT LIKE"
	OpIsNull             Operator = "IS NULL"
	OpIsNotNull          Operator = "IS NOT NULL"
	OpBetween            Operator = "BETWEEN"
	// OpArrayContains is the array @> operator.
	OpArrayContains Operator = "@>"
	// OpArrayOverlap is the array && operator.
	OpArrayOverlap Operator = "&&"
	// OpExpr marks a raw SQL fragment; Column holds the SQL with ?
	// placeholders and Value holds []any arguments.
	OpExpr Operator = "EXPR"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// Reverse flips the direction.
func (d OrderDirection) Reverse() OrderDirection {
	if d == Desc {
		return Asc
	}
	return Desc
}

// NullsPosition represents NULL positioning in ORDER BY.
type NullsPosition string

const (
	NullsFirst   NullsPosition = "NULLS FIRST"
	NullsLast    NullsPosition = "NULLS LAST"
	NullsDefault NullsPosition = ""
)

// ConflictAction represents the action for ON CONFLICT.
type ConflictAction string

const (
	DoNothing ConflictAction = "DO NOTHING"
	DoUpdate  ConflictAction = "DO UPDATE SET"
)

package client

import "github.com/marshallshelly/jobstore/pkg/builder"

// FindArgs filters, orders and pages a read.
//
// Take limits the result; a negative Take reads backwards from the end of
// the ordering (or from Cursor) and still returns rows in the requested
// order. Zero means no limit. Cursor is an equality on a unique column and
// starts the page at that row, inclusive.
type FindArgs struct {
	Where    []builder.Condition
	OrderBy  []builder.OrderBy
	Take     int
	Skip     int
	Cursor   map[string]any
	Distinct []string
	Select   []string
	Omit     []string
	Include  []string
}

// UniqueArgs identifies a single row by primary key or unique column.
type UniqueArgs struct {
	Where   []builder.Condition
	Select  []string
	Omit    []string
	Include []string
}

// CreateManyArgs inserts several rows in one statement. With
// SkipDuplicates rows that violate a unique constraint are ignored.
type CreateManyArgs[T any] struct {
	Data           []T
	SkipDuplicates bool
}

// UpdateArgs changes one row identified by Where. Data is an update payload
// whose nil fields are left untouched; Unset lists columns set to NULL.
type UpdateArgs[U any] struct {
	Where   []builder.Condition
	Data    U
	Unset   []string
	Select  []string
	Omit    []string
	Include []string
}

// UpdateManyArgs changes every row matching Where.
type UpdateManyArgs[U any] struct {
	Where []builder.Condition
	Data  U
	Unset []string
}

// UpsertArgs updates the row identified by Where or creates it.
type UpsertArgs[T, U any] struct {
	Where   []builder.Condition
	Create  T
	Update  U
	Select  []string
	Omit    []string
	Include []string
}

// Aggregates names the columns each aggregate applies to. Count accepts
// "_all" for COUNT(*).
type Aggregates struct {
	Count []string
	Sum   []string
	Avg   []string
	Min   []string
	Max   []string
}

// AggregateArgs computes aggregates over the rows selected by Where,
// OrderBy, Take and Skip.
type AggregateArgs struct {
	Aggregates
	Where   []builder.Condition
	OrderBy []builder.OrderBy
	Take    int
	Skip    int
}

// GroupByArgs computes aggregates per distinct combination of By. OrderBy
// and Having may reference By columns or aggregate expressions such as
// builder.SumOf("total").SQL().
type GroupByArgs struct {
	Aggregates
	By      []string
	Where   []builder.Condition
	Having  []builder.Condition
	OrderBy []builder.OrderBy
	Take    int
	Skip    int
}

// AggregateResult holds aggregate values keyed by column; counts of all
// rows are under "_all".
type AggregateResult = builder.AggregateRow

// BatchResult reports how many rows a bulk write touched.
type BatchResult struct {
	Count int64
}

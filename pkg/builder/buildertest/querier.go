// Package buildertest provides a scripted in-memory Querier for testing code
// built on the query builder without a database.
package buildertest

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Call records one statement sent to the Querier.
type Call struct {
	Method string
	SQL    string
	Args   []any
}

// Result is the scripted response to one statement.
type Result struct {
	Columns  []string
	Rows     [][]any
	Affected int64
	Err      error
}

// Rows scripts a result set.
func Rows(columns []string, rows ...[]any) Result {
	return Result{Columns: columns, Rows: rows, Affected: int64(len(rows))}
}

// Affected scripts an Exec result.
func Affected(n int64) Result {
	return Result{Affected: n}
}

// Fail scripts an error. It is classified like a driver error.
func Fail(err error) Result {
	return Result{Err: err}
}

// Querier replays scripted results in order and records every call. An
// exhausted script answers with an empty result.
type Querier struct {
	mu      sync.Mutex
	calls   []Call
	results []Result
}

// New creates a Querier that answers with results in order.
func New(results ...Result) *Querier {
	return &Querier{results: results}
}

// Push appends scripted results.
func (q *Querier) Push(results ...Result) *Querier {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results = append(q.results, results...)
	return q
}

// Calls returns a copy of the recorded calls.
func (q *Querier) Calls() []Call {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Call(nil), q.calls...)
}

// SQL returns the statement of call i.
func (q *Querier) SQL(i int) string {
	calls := q.Calls()
	if i < 0 || i >= len(calls) {
		return ""
	}
	return calls[i].SQL
}

// Last returns the most recent call.
func (q *Querier) Last() Call {
	calls := q.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

func (q *Querier) next(method, sql string, args []any) Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, Call{Method: method, SQL: sql, Args: args})
	if len(q.results) == 0 {
		return Result{}
	}
	r := q.results[0]
	q.results = q.results[1:]
	return r
}

// Exec implements builder.Querier.
func (q *Querier) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	r := q.next("Exec", sql, args)
	if r.Err != nil {
		return 0, runtime.Wrap(r.Err, sql)
	}
	return r.Affected, nil
}

// Query implements builder.Querier.
func (q *Querier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	r := q.next("Query", sql, args)
	if r.Err != nil {
		return nil, runtime.Wrap(r.Err, sql)
	}
	return &fakeRows{result: r, pos: -1}, nil
}

// QueryRow implements builder.Querier.
func (q *Querier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	r := q.next("QueryRow", sql, args)
	return fakeRow{result: r, sql: sql}
}

type fakeRow struct {
	result Result
	sql    string
}

func (r fakeRow) Scan(dest ...any) error {
	if r.result.Err != nil {
		return runtime.Wrap(r.result.Err, r.sql)
	}
	if len(r.result.Rows) == 0 {
		return runtime.Wrap(pgx.ErrNoRows, r.sql)
	}
	return scanValues(r.result.Rows[0], dest)
}

type fakeRows struct {
	result Result
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close() { r.closed = true }

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.result.Rows)))
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.result.Columns))
	for i, name := range r.result.Columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return fields
}

func (r *fakeRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	r.pos++
	if r.pos >= len(r.result.Rows) {
		r.closed = true
		return false
	}
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.result.Rows) {
		return fmt.Errorf("scan called without a current row")
	}
	if err := scanValues(r.result.Rows[r.pos], dest); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.result.Rows) {
		return nil, fmt.Errorf("values called without a current row")
	}
	return append([]any(nil), r.result.Rows[r.pos]...), nil
}

func (r *fakeRows) RawValues() [][]byte { return nil }

func (r *fakeRows) Conn() *pgx.Conn { return nil }

func scanValues(row []any, dest []any) error {
	if len(row) != len(dest) {
		return fmt.Errorf("row has %d values, scan got %d destinations", len(row), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}

// assign stores src in the pointer dst, converting between compatible types
// and honoring sql.Scanner.
func assign(dst, src any) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}
	target := dv.Elem()

	if src == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(target.Type()) {
		target.Set(sv)
		return nil
	}
	if scanner, ok := dst.(sql.Scanner); ok {
		return scanner.Scan(src)
	}
	if target.Kind() == reflect.Ptr {
		elem := reflect.New(target.Type().Elem())
		if err := assign(elem.Interface(), src); err != nil {
			return err
		}
		target.Set(elem)
		return nil
	}
	if sv.Type().ConvertibleTo(target.Type()) && sv.Kind() != reflect.String {
		target.Set(sv.Convert(target.Type()))
		return nil
	}
	if sv.Kind() == reflect.String && target.Kind() == reflect.String {
		target.SetString(sv.String())
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, target.Type())
}

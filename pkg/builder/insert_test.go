package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marshallshelly/jobstore/pkg/builder/buildertest"
	"github.com/marshallshelly/jobstore/pkg/runtime"
	"github.com/shopspring/decimal"
)

func TestInsertQuery_ToSQL(t *testing.T) {
	db := New(nil)
	price := decimal.RequireFromString("29.99")

	tests := []struct {
		name       string
		setupQuery func() *InsertQuery[Gadget]
		wantSQL    string
		wantArgLen int
	}{
		{
			name: "single row leaves defaults to the database",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).Values(Gadget{Name: "Lamp", Price: price})
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, tags) VALUES ($1, $2, $3, $4)",
			wantArgLen: 4,
		},
		{
			name: "explicit false is written",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).Values(Gadget{Name: "Lamp", Price: price, Active: ptr(false)})
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, active, tags) VALUES ($1, $2, $3, $4, $5)",
			wantArgLen: 5,
		},
		{
			name: "multi row fills missing columns with DEFAULT",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).Values(
					Gadget{Name: "Lamp", Price: price},
					Gadget{Name: "Desk", Price: price, Stock: 5},
				)
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, stock, tags) VALUES ($1, $2, $3, DEFAULT, $4), ($5, $6, $7, $8, $9)",
			wantArgLen: 9,
		},
		{
			name: "on conflict do nothing",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).Values(Gadget{Name: "Lamp", Price: price}).OnConflictDoNothing("name")
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, tags) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING",
			wantArgLen: 4,
		},
		{
			name: "upsert qualifies increments",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).
					Values(Gadget{Name: "Lamp", Price: price}).
					OnConflictDoUpdate([]string{"name"}, map[string]any{
						"stock": Increment{By: 1},
						"price": Excluded("price"),
					}).
					Returning("*")
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, tags) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, stock = gadgets.stock + $5 RETURNING *",
			wantArgLen: 5,
		},
		{
			name: "upsert without updates keeps the row",
			setupQuery: func() *InsertQuery[Gadget] {
				return Insert[Gadget](db).Values(Gadget{Name: "Lamp", Price: price}).OnConflictDoUpdate([]string{"name"}, nil)
			},
			wantSQL:    "INSERT INTO gadgets (id, name, price, tags) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO UPDATE SET name = gadgets.name",
			wantArgLen: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.setupQuery().ToSQL()
			if err != nil {
				t.Fatalf("ToSQL() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("ToSQL() sql =\n%s\nwant\n%s", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgLen {
				t.Errorf("ToSQL() args = %d, want %d", len(args), tt.wantArgLen)
			}
		})
	}
}

func TestInsertQuery_GeneratesUUID(t *testing.T) {
	_, args, err := Insert[Gadget](New(nil)).Values(Gadget{Name: "Lamp"}).ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	id, ok := args[0].(string)
	if !ok || len(id) != 36 {
		t.Errorf("expected generated uuid string, got %#v", args[0])
	}

	_, args, err = Insert[Gadget](New(nil)).Values(Gadget{ID: "fixed", Name: "Lamp"}).ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	if args[0] != "fixed" {
		t.Errorf("explicit id overwritten: %#v", args[0])
	}
}

func TestInsertQuery_NoValues(t *testing.T) {
	_, _, err := Insert[Gadget](New(nil)).ToSQL()
	if !errors.Is(err, runtime.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestInsertQuery_ExecReturning(t *testing.T) {
	q := buildertest.New(buildertest.Rows(
		[]string{"id", "name", "price"},
		[]any{"g1", "Lamp", decimal.RequireFromString("29.99")},
	))

	rows, err := Insert[Gadget](q).Values(Gadget{Name: "Lamp"}).ExecReturning(context.Background())
	if err != nil {
		t.Fatalf("ExecReturning() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "g1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if !rows[0].Price.Equal(decimal.RequireFromString("29.99")) {
		t.Errorf("price = %s, want 29.99", rows[0].Price)
	}
}

func TestInsertQuery_ClassifiesUniqueViolation(t *testing.T) {
	q := buildertest.New(buildertest.Fail(&pgconn.PgError{Code: "23505", ConstraintName: "gadgets_name_key"}))

	_, err := Insert[Gadget](q).Values(Gadget{Name: "Lamp"}).Exec(context.Background())
	if !errors.Is(err, runtime.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	var dbErr *runtime.Error
	if !errors.As(err, &dbErr) || dbErr.Constraint != "gadgets_name_key" {
		t.Errorf("constraint not preserved: %v", err)
	}
}

package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/marshallshelly/jobstore/pkg/builder/buildertest"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

func TestUpdateQuery_ToSQL(t *testing.T) {
	db := New(nil)

	tests := []struct {
		name       string
		setupQuery func() *UpdateQuery[Gadget]
		wantSQL    string
		wantArgLen int
	}{
		{
			name: "set and increment touch updated_at",
			setupQuery: func() *UpdateQuery[Gadget] {
				return Update[Gadget](db).Set("name", "Lamp").Increment("stock", 2).Where(Eq("id", "g1"))
			},
			wantSQL:    "UPDATE gadgets SET name = $1, stock = stock + $2, updated_at = NOW() WHERE id = $3",
			wantArgLen: 3,
		},
		{
			name: "explicit updated_at wins",
			setupQuery: func() *UpdateQuery[Gadget] {
				return Update[Gadget](db).SetMap(map[string]any{"updated_at": Raw("'epoch'")}).Returning("id")
			},
			wantSQL: "UPDATE gadgets SET updated_at = 'epoch' RETURNING id",
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

func TestUpdateQuery_EmptySet(t *testing.T) {
	_, _, err := Update[Gadget](New(nil)).Where(Eq("id", "g1")).ToSQL()
	if !errors.Is(err, runtime.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateQuery_Exec(t *testing.T) {
	q := buildertest.New(buildertest.Affected(2))

	n, err := Update[Gadget](q).Set("stock", 0).Where(Lt("stock", 0)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Exec() = %d, want 2", n)
	}
	if call := q.Last(); call.Method != "Exec" {
		t.Errorf("expected Exec call, got %s", call.Method)
	}
}

func TestDeleteQuery_ToSQL(t *testing.T) {
	sql, args, err := Delete[Gadget](New(nil)).Where(Eq("id", "g1")).Returning("id").ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	if sql != "DELETE FROM gadgets WHERE id = $1 RETURNING id" {
		t.Errorf("unexpected SQL: %s", sql)
	}
	if len(args) != 1 || args[0] != "g1" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestDeleteQuery_ExecReturning(t *testing.T) {
	q := buildertest.New(buildertest.Rows([]string{"id", "name"}, []any{"g1", "Lamp"}))

	rows, err := Delete[Gadget](q).Where(Eq("id", "g1")).ExecReturning(context.Background())
	if err != nil {
		t.Fatalf("ExecReturning() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Lamp" {
		t.Errorf("unexpected rows: %+v", rows)
	}
	if sql := q.SQL(0); sql != "DELETE FROM gadgets WHERE id = $1 RETURNING *" {
		t.Errorf("unexpected SQL: %s", sql)
	}
}

func TestChangeSet(t *testing.T) {
	sets, err := ChangeSet(GadgetUpdate{Name: ptr("Lamp"), Stock: ptr(3)})
	if err != nil {
		t.Fatalf("ChangeSet() error = %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 columns, got %v", sets)
	}
	if sets["name"] != "Lamp" {
		t.Errorf("name = %v", sets["name"])
	}
	if inc, ok := sets["stock"].(Increment); !ok || inc.By != 3 {
		t.Errorf("stock = %#v, want Increment{3}", sets["stock"])
	}

	empty, err := ChangeSet(&GadgetUpdate{})
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty set, got %v, %v", empty, err)
	}

	if _, err := ChangeSet(42); err == nil {
		t.Error("expected error for non-struct payload")
	}
}

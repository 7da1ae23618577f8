package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestGoTypeToPostgreSQL(t *testing.T) {
	tm := NewTypeMapper()
	var price *decimal.Decimal

	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"bool", reflect.TypeOf(true), "boolean"},
		{"int", reflect.TypeOf(0), "integer"},
		{"int64", reflect.TypeOf(int64(0)), "bigint"},
		{"int16", reflect.TypeOf(int16(0)), "smallint"},
		{"float64", reflect.TypeOf(0.0), "double precision"},
		{"string", reflect.TypeOf(""), "text"},
		{"bytes", reflect.TypeOf([]byte{}), "bytea"},
		{"strings", reflect.TypeOf([]string{}), "text[]"},
		{"time", reflect.TypeOf(time.Time{}), "timestamptz"},
		{"uuid", reflect.TypeOf(uuid.UUID{}), "uuid"},
		{"decimal pointer", reflect.TypeOf(price), "numeric"},
		{"map", reflect.TypeOf(map[string]any{}), "jsonb"},
		{"struct", reflect.TypeOf(struct{}{}), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tm.GoTypeToPostgreSQL(tt.typ); got != tt.want {
				t.Errorf("GoTypeToPostgreSQL(%s) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestRegisterType(t *testing.T) {
	type money int64
	tm := NewTypeMapper()
	tm.RegisterType(reflect.TypeOf(money(0)), "numeric(12,2)")

	if got := tm.GoTypeToPostgreSQL(reflect.TypeOf(money(0))); got != "numeric(12,2)" {
		t.Errorf("custom mapping = %q, want numeric(12,2)", got)
	}
	if got := DefaultTypeMapper.GoTypeToPostgreSQL(reflect.TypeOf(money(0))); got != "bigint" {
		t.Errorf("default mapper should be unaffected, got %q", got)
	}
}

func TestIsNullable(t *testing.T) {
	var s *string
	if !IsNullable(reflect.TypeOf(s)) {
		t.Error("pointer should be nullable")
	}
	if IsNullable(reflect.TypeOf("")) {
		t.Error("string should not be nullable")
	}
}

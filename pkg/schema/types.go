package schema

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypeMapper handles mapping between Go types and PostgreSQL types.
type TypeMapper struct {
	mu             sync.RWMutex
	customMappings map[reflect.Type]string
}

// NewTypeMapper creates a new TypeMapper instance.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{
		customMappings: map[reflect.Type]string{
			reflect.TypeOf(time.Time{}):       "timestamptz",
			reflect.TypeOf(decimal.Decimal{}): "numeric",
			reflect.TypeOf(uuid.UUID{}):       "uuid",
		},
	}
}

// RegisterType registers a custom type mapping.
func (tm *TypeMapper) RegisterType(goType reflect.Type, pgType string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.customMappings[goType] = pgType
}

// GoTypeToPostgreSQL maps a Go type to its PostgreSQL equivalent.
// Returns "" when the type has to be named in the tag.
func (tm *TypeMapper) GoTypeToPostgreSQL(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	tm.mu.RLock()
	pgType, ok := tm.customMappings[t]
	tm.mu.RUnlock()
	if ok {
		return pgType
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "smallint"
	case reflect.Int32, reflect.Int, reflect.Uint16:
		return "integer"
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		return "text"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytea"
		}
		if elemType := tm.GoTypeToPostgreSQL(t.Elem()); elemType != "" {
			return elemType + "[]"
		}
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return "jsonb"
		}
	}
	return ""
}

// IsNullable checks if a Go type can hold NULL.
func IsNullable(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr
}

// DefaultTypeMapper is the global type mapper instance.
var DefaultTypeMapper = NewTypeMapper()

// Package registry holds the parsed table metadata of every model the client
// knows about, looked up by Go type or by table name.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

// ErrNotRegistered is returned by lookups for unknown models or tables.
var ErrNotRegistered = errors.New("not registered")

// Registry is safe for concurrent use. Metadata is parsed once per type.
type Registry struct {
	parser *schema.Parser

	mu      sync.RWMutex
	byType  map[reflect.Type]*schema.TableMetadata
	byTable map[string]*schema.TableMetadata
	order   []*schema.TableMetadata
}

func NewRegistry() *Registry {
	r := &Registry{parser: schema.NewParser()}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.byType = make(map[reflect.Type]*schema.TableMetadata)
	r.byTable = make(map[string]*schema.TableMetadata)
	r.order = nil
}

// structType strips pointers and rejects anything that is not a struct.
func structType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}
	return t, nil
}

func (r *Registry) lookup(t reflect.Type) (*schema.TableMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.byType[t]
	return table, ok
}

// GetType returns the metadata for t, parsing and storing it on first use.
// A second type claiming an already registered table name is an error.
func (r *Registry) GetType(t reflect.Type) (*schema.TableMetadata, error) {
	t, err := structType(t)
	if err != nil {
		return nil, err
	}
	if table, ok := r.lookup(t); ok {
		return table, nil
	}

	parsed, err := r.parser.Parse(t)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", t.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if table, ok := r.byType[t]; ok {
		return table, nil
	}
	if other, ok := r.byTable[parsed.Name]; ok {
		return nil, fmt.Errorf("table %s already registered by %s", parsed.Name, other.GoType)
	}
	r.byType[t] = parsed
	r.byTable[parsed.Name] = parsed
	r.order = append(r.order, parsed)
	return parsed, nil
}

// GetOrRegister is GetType for a model value.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	return r.GetType(reflect.TypeOf(model))
}

// Register stores model. Registering the same type again is a no-op.
func (r *Registry) Register(model any) error {
	_, err := r.GetOrRegister(model)
	return err
}

// Get returns the metadata of an already registered type.
func (r *Registry) Get(t reflect.Type) (*schema.TableMetadata, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	if table, ok := r.lookup(st); ok {
		return table, nil
	}
	return nil, fmt.Errorf("model type %s: %w", st.Name(), ErrNotRegistered)
}

// GetByName returns the metadata of a registered table.
func (r *Registry) GetByName(table string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	meta, ok := r.byTable[table]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("table %s: %w", table, ErrNotRegistered)
	}
	return meta, nil
}

func (r *Registry) Has(t reflect.Type) bool {
	_, err := r.Get(t)
	return err == nil
}

func (r *Registry) HasTable(table string) bool {
	_, err := r.GetByName(table)
	return err == nil
}

// All returns the tables in registration order.
func (r *Registry) All() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.TableMetadata, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Clear() {
	r.mu.Lock()
	r.reset()
	r.mu.Unlock()
}

var global = NewRegistry()

// Register adds model to the process-wide registry.
func Register(model any) error { return global.Register(model) }

func Get(t reflect.Type) (*schema.TableMetadata, error) { return global.Get(t) }

func GetByName(table string) (*schema.TableMetadata, error) { return global.GetByName(table) }

func GetOrRegister(model any) (*schema.TableMetadata, error) { return global.GetOrRegister(model) }

func GetType(t reflect.Type) (*schema.TableMetadata, error) { return global.GetType(t) }

func All() []*schema.TableMetadata { return global.All() }

func Clear() { global.Clear() }

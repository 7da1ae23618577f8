package builder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

// ChangeSet converts an update payload into a SET map.
//
// The payload is a struct whose fields carry po tags naming the column. A
// nil pointer field leaves the column unchanged. A field tagged with the
// increment option becomes an Increment instead of an assignment. Fields of
// type Raw are assigned verbatim.
//
//	type ProductUpdate struct {
//		Price  *decimal.Decimal `po:"price"`
//		Active *bool            `po:"active"`
//		Stock  *int             `po:"stock,increment"`
//	}
func ChangeSet(payload any) (map[string]any, error) {
	sets := make(map[string]any)
	if payload == nil {
		return sets, nil
	}
	if m, ok := payload.(map[string]any); ok {
		for k, v := range m {
			sets[k] = v
		}
		return sets, nil
	}

	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return sets, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("update payload must be a struct or map, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get(schema.StructTagKey)
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		column := strings.TrimSpace(parts[0])
		increment := false
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "increment" {
				increment = true
			}
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			if field.IsNil() {
				continue
			}
		}

		value := field.Interface()
		if field.Kind() == reflect.Ptr {
			value = field.Elem().Interface()
		}
		if increment {
			value = Increment{By: value}
		}
		sets[column] = value
	}
	return sets, nil
}

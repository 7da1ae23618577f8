package schema

import (
	"fmt"
	"reflect"
)

// ParseRelationships extracts relationship metadata from struct fields.
func (p *Parser) ParseRelationships(modelType reflect.Type, table *TableMetadata) error {
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" {
			continue
		}
		tagOpts, err := parseTag(tagValue)
		if err != nil || !tagOpts.isRelationship() {
			continue
		}
		rel, err := parseRelationship(field, tagOpts, table)
		if err != nil {
			return fmt.Errorf("failed to parse relationship for field %s: %w", field.Name, err)
		}
		table.Relationships = append(table.Relationships, *rel)
	}
	return nil
}

func parseRelationship(field reflect.StructField, opts *TagOptions, source *TableMetadata) (*RelationshipMetadata, error) {
	rel := &RelationshipMetadata{
		SourceTable: source.Name,
		SourceField: field.Name,
		ForeignKey:  opts.Get("foreignKey"),
		References:  opts.Get("references"),
	}

	fieldType := field.Type
	switch {
	case opts.Has("belongsTo"):
		rel.Type = BelongsTo
	case opts.Has("hasOne"):
		rel.Type = HasOne
	case opts.Has("hasMany"):
		rel.Type = HasMany
		if fieldType.Kind() != reflect.Slice {
			return nil, fmt.Errorf("hasMany field must be a slice, got %s", fieldType)
		}
		fieldType = fieldType.Elem()
	}
	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("relationship target must be a struct, got %s", fieldType)
	}
	rel.TargetType = fieldType

	if rel.ForeignKey == "" {
		switch rel.Type {
		case BelongsTo:
			rel.ForeignKey = toSnakeCase(fieldType.Name()) + "_id"
		case HasOne, HasMany:
			rel.ForeignKey = toSnakeCase(source.GoType.Name()) + "_id"
		}
	}
	if rel.References == "" {
		rel.References = "id"
	}
	return rel, nil
}

// GetRelationship returns a relationship by source field name.
func (t *TableMetadata) GetRelationship(fieldName string) *RelationshipMetadata {
	for i := range t.Relationships {
		if t.Relationships[i].SourceField == fieldName {
			return &t.Relationships[i]
		}
	}
	return nil
}

// HasRelationships checks if the table has any relationships.
func (t *TableMetadata) HasRelationships() bool {
	return len(t.Relationships) > 0
}

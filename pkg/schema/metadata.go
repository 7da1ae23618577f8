package schema

import (
	"reflect"
	"slices"
)

// TableMetadata describes a table parsed from a model struct.
type TableMetadata struct {
	Name          string
	GoType        reflect.Type
	Columns       []ColumnMetadata
	PrimaryKey    *PrimaryKeyMetadata
	ForeignKeys   []ForeignKeyMetadata
	Indexes       []IndexMetadata
	Relationships []RelationshipMetadata
}

// ColumnMetadata describes a single column.
type ColumnMetadata struct {
	Name          string
	GoField       string
	GoType        reflect.Type
	SQLType       string
	Nullable      bool
	Default       *string
	Unique        bool
	AutoIncrement bool
	AutoUUID      bool
	AutoUpdate    bool
	Identity      *IdentityColumn
	Position      int
}

// PrimaryKeyMetadata lists the primary key columns.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// ForeignKeyMetadata describes a foreign key constraint and its referential actions.
type ForeignKeyMetadata struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferenceAction
	OnUpdate          ReferenceAction
}

// IndexMetadata describes a non-unique secondary index.
type IndexMetadata struct {
	Name    string
	Columns []string
}

// ReferenceAction is the action taken on referencing rows.
type ReferenceAction string

const (
	NoAction   ReferenceAction = "NO ACTION"
	Restrict   ReferenceAction = "RESTRICT"
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// IdentityGeneration selects GENERATED ALWAYS or BY DEFAULT.
type IdentityGeneration string

const (
	IdentityAlways    IdentityGeneration = "ALWAYS"
	IdentityByDefault IdentityGeneration = "BY DEFAULT"
)

// IdentityColumn marks a column as GENERATED ... AS IDENTITY.
type IdentityColumn struct {
	Generation IdentityGeneration
}

// RelationType is the kind of association between two models.
type RelationType string

const (
	BelongsTo RelationType = "belongsTo"
	HasOne    RelationType = "hasOne"
	HasMany   RelationType = "hasMany"
)

// RelationshipMetadata describes an association field on a model.
//
// For BelongsTo the foreign key lives on the source table and References is
// a column of the target. For HasOne and HasMany the foreign key lives on the
// target table and References is a column of the source.
type RelationshipMetadata struct {
	Type        RelationType
	SourceTable string
	SourceField string
	TargetType  reflect.Type
	ForeignKey  string
	References  string
}

// GetColumn returns the column with the given name, or nil.
func (t *TableMetadata) GetColumn(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetColumnByField returns the column mapped to the given Go field, or nil.
func (t *TableMetadata) GetColumnByField(field string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].GoField == field {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns all column names in declaration order.
func (t *TableMetadata) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// IsPrimaryKey reports whether the column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	return t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, column)
}

// PrimaryKeyColumn returns the single primary key column name, or "" for
// tables without one or with a composite key.
func (t *TableMetadata) PrimaryKeyColumn() string {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return ""
	}
	return t.PrimaryKey.Columns[0]
}

// IsUniqueKey reports whether a single column identifies at most one row.
func (t *TableMetadata) IsUniqueKey(column string) bool {
	if t.PrimaryKeyColumn() == column && column != "" {
		return true
	}
	col := t.GetColumn(column)
	return col != nil && col.Unique
}

// ForeignKeyFor returns the foreign key declared on the given column, or nil.
func (t *TableMetadata) ForeignKeyFor(column string) *ForeignKeyMetadata {
	for i := range t.ForeignKeys {
		if slices.Contains(t.ForeignKeys[i].Columns, column) {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

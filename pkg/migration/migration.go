// Package migration plans DDL from the registered models, writes migration
// files and applies them to the database.
package migration

import (
	"time"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Migration is one versioned pair of up and down scripts.
type Migration struct {
	Version   string // e.g. "20240101120000"
	Name      string // e.g. "create_products"
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
}

// MigrationFile locates a migration on disk.
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// SchemaDiff is the set of changes taking the database to the models.
type SchemaDiff struct {
	TablesAdded    []schema.TableMetadata
	TablesDropped  []schema.TableMetadata
	TablesModified []TableDiff
}

// TableDiff lists the changes to one existing table.
type TableDiff struct {
	TableName          string
	ColumnsAdded       []schema.ColumnMetadata
	ColumnsDropped     []schema.ColumnMetadata
	ColumnsModified    []ColumnDiff
	IndexesAdded       []schema.IndexMetadata
	IndexesDropped     []schema.IndexMetadata
	ForeignKeysAdded   []schema.ForeignKeyMetadata
	ForeignKeysDropped []schema.ForeignKeyMetadata
}

// ColumnDiff describes how one column changed.
type ColumnDiff struct {
	ColumnName     string
	OldColumn      schema.ColumnMetadata
	NewColumn      schema.ColumnMetadata
	TypeChanged    bool
	NullChanged    bool
	DefaultChanged bool
	UniqueChanged  bool
}

// MigrationStatus is the state of a migration in schema_migrations.
type MigrationStatus string

const (
	StatusPending MigrationStatus = "pending"
	StatusApplied MigrationStatus = "applied"
	StatusFailed  MigrationStatus = "failed"
)

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	Name      string
	Status    MigrationStatus
	AppliedAt *time.Time
	Error     *string
}

// HasChanges reports whether the diff would change the database.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 ||
		len(d.TablesDropped) > 0 ||
		len(d.TablesModified) > 0
}

// HasChanges reports whether the table changed.
func (t *TableDiff) HasChanges() bool {
	return len(t.ColumnsAdded) > 0 ||
		len(t.ColumnsDropped) > 0 ||
		len(t.ColumnsModified) > 0 ||
		len(t.IndexesAdded) > 0 ||
		len(t.IndexesDropped) > 0 ||
		len(t.ForeignKeysAdded) > 0 ||
		len(t.ForeignKeysDropped) > 0
}

// GenerateVersion returns a timestamp version in YYYYMMDDHHmmss form.
func GenerateVersion() string {
	return time.Now().UTC().Format("20060102150405")
}

// GenerateFileName returns {version}_{name}.{up|down}.sql.
func GenerateFileName(version, name, direction string) string {
	return version + "_" + name + "." + direction + ".sql"
}

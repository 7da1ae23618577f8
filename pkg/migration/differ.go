package migration

import (
	"regexp"
	"slices"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Differ compares the model schema with the database schema.
type Differ struct{}

// NewDiffer creates a schema differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// TablesByName indexes tables by name.
func TablesByName(tables []*schema.TableMetadata) map[string]*schema.TableMetadata {
	out := make(map[string]*schema.TableMetadata, len(tables))
	for _, t := range tables {
		out[t.Name] = t
	}
	return out
}

// Compare returns the changes that take dbSchema to codeSchema. Results are
// sorted by table name so generated files are stable.
func (d *Differ) Compare(codeSchema, dbSchema map[string]*schema.TableMetadata) *SchemaDiff {
	diff := &SchemaDiff{}

	for _, name := range sortedKeys(codeSchema) {
		codeTable := codeSchema[name]
		dbTable, exists := dbSchema[name]
		if !exists {
			diff.TablesAdded = append(diff.TablesAdded, *codeTable)
			continue
		}
		if td := d.compareTable(codeTable, dbTable); td.HasChanges() {
			diff.TablesModified = append(diff.TablesModified, td)
		}
	}
	for _, name := range sortedKeys(dbSchema) {
		if _, exists := codeSchema[name]; !exists {
			diff.TablesDropped = append(diff.TablesDropped, *dbSchema[name])
		}
	}
	return diff
}

func (d *Differ) compareTable(codeTable, dbTable *schema.TableMetadata) TableDiff {
	diff := TableDiff{TableName: codeTable.Name}

	for _, col := range codeTable.Columns {
		dbCol := dbTable.GetColumn(col.Name)
		if dbCol == nil {
			diff.ColumnsAdded = append(diff.ColumnsAdded, col)
			continue
		}
		if cd, changed := compareColumn(*dbCol, col); changed {
			diff.ColumnsModified = append(diff.ColumnsModified, cd)
		}
	}
	for _, col := range dbTable.Columns {
		if codeTable.GetColumn(col.Name) == nil {
			diff.ColumnsDropped = append(diff.ColumnsDropped, col)
		}
	}

	for _, idx := range codeTable.Indexes {
		if !slices.ContainsFunc(dbTable.Indexes, func(o schema.IndexMetadata) bool { return sameIndex(o, idx) }) {
			diff.IndexesAdded = append(diff.IndexesAdded, idx)
		}
	}
	for _, idx := range dbTable.Indexes {
		if !slices.ContainsFunc(codeTable.Indexes, func(o schema.IndexMetadata) bool { return sameIndex(o, idx) }) {
			diff.IndexesDropped = append(diff.IndexesDropped, idx)
		}
	}

	for _, fk := range codeTable.ForeignKeys {
		if !slices.ContainsFunc(dbTable.ForeignKeys, func(o schema.ForeignKeyMetadata) bool { return sameForeignKey(o, fk) }) {
			diff.ForeignKeysAdded = append(diff.ForeignKeysAdded, fk)
		}
	}
	for _, fk := range dbTable.ForeignKeys {
		if !slices.ContainsFunc(codeTable.ForeignKeys, func(o schema.ForeignKeyMetadata) bool { return sameForeignKey(o, fk) }) {
			diff.ForeignKeysDropped = append(diff.ForeignKeysDropped, fk)
		}
	}
	return diff
}

func compareColumn(dbCol, codeCol schema.ColumnMetadata) (ColumnDiff, bool) {
	cd := ColumnDiff{ColumnName: codeCol.Name, OldColumn: dbCol, NewColumn: codeCol}
	cd.TypeChanged = normalizeType(dbCol.SQLType) != normalizeType(codeCol.SQLType)
	cd.NullChanged = dbCol.Nullable != codeCol.Nullable
	if !codeCol.AutoIncrement && !dbCol.AutoIncrement {
		cd.DefaultChanged = normalizeDefault(dbCol.Default) != normalizeDefault(codeCol.Default)
	}
	cd.UniqueChanged = dbCol.Unique != codeCol.Unique
	return cd, cd.TypeChanged || cd.NullChanged || cd.DefaultChanged || cd.UniqueChanged
}

var typeAliases = map[string]string{
	"timestamp with time zone":    "timestamptz",
	"timestamp without time zone": "timestamp",
	"character varying":           "varchar",
	"int":                         "integer",
	"int4":                        "integer",
	"int8":                        "bigint",
	"int2":                        "smallint",
	"serial":                      "integer",
	"serial4":                     "integer",
	"bigserial":                   "bigint",
	"serial8":                     "bigint",
	"bool":                        "boolean",
	"float8":                      "double precision",
	"float4":                      "real",
	"decimal":                     "numeric",
	"_text":                       "text[]",
	"_varchar":                    "varchar[]",
	"_int4":                       "integer[]",
	"_uuid":                       "uuid[]",
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.ReplaceAll(t, ", ", ",")
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

var castSuffix = regexp.MustCompile(`::[a-z_ ]+(\[\])?(\(\d+(,\d+)?\))?`)

// normalizeDefault strips the casts PostgreSQL adds when it stores a
// default, so 'active'::character varying compares equal to 'active'.
func normalizeDefault(def *string) string {
	if def == nil {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(*def))
	s = castSuffix.ReplaceAllString(s, "")
	if s == "current_timestamp" {
		return "now()"
	}
	return s
}

func sameIndex(a, b schema.IndexMetadata) bool {
	return a.Name == b.Name && slices.Equal(a.Columns, b.Columns)
}

func sameForeignKey(a, b schema.ForeignKeyMetadata) bool {
	return a.Name == b.Name &&
		slices.Equal(a.Columns, b.Columns) &&
		a.ReferencedTable == b.ReferencedTable &&
		slices.Equal(a.ReferencedColumns, b.ReferencedColumns) &&
		action(a.OnDelete) == action(b.OnDelete) &&
		action(a.OnUpdate) == action(b.OnUpdate)
}

func action(a schema.ReferenceAction) schema.ReferenceAction {
	if a == "" {
		return schema.NoAction
	}
	return a
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

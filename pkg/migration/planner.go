package migration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

// PlannerOptions configures generated DDL.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE and CREATE INDEX.
	IfNotExists bool
}

// Planner renders SQL from a schema diff.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a planner with IfNotExists enabled.
func NewPlanner() *Planner {
	return &Planner{options: PlannerOptions{IfNotExists: true}}
}

// NewPlannerWithOptions creates a planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// GenerateMigration returns the up and down scripts for diff. New tables are
// created after the tables they reference; dropped tables go in reverse.
func (p *Planner) GenerateMigration(diff *SchemaDiff) (upSQL, downSQL string) {
	var up, undo []string

	added := orderByDependency(diff.TablesAdded)
	for _, table := range added {
		up = append(up, p.generateCreateTable(&table))
	}
	for _, td := range diff.TablesModified {
		u, d := p.generateAlterTable(td)
		up = append(up, u...)
		undo = append(undo, d...)
	}
	dropped := orderByDependency(diff.TablesDropped)
	for i := len(dropped) - 1; i >= 0; i-- {
		up = append(up, p.generateDropTable(dropped[i].Name))
	}

	var down []string
	for _, table := range dropped {
		down = append(down, p.generateCreateTable(&table))
	}
	slices.Reverse(undo)
	down = append(down, undo...)
	for i := len(added) - 1; i >= 0; i-- {
		down = append(down, p.generateDropTable(added[i].Name))
	}

	return strings.Join(up, "\n\n") + "\n", strings.Join(down, "\n\n") + "\n"
}

// GenerateSchema returns the DDL creating every table from scratch.
func (p *Planner) GenerateSchema(tables []*schema.TableMetadata) string {
	up, _ := p.GenerateMigration(NewDiffer().Compare(TablesByName(tables), nil))
	return up
}

// orderByDependency sorts tables so each comes after the tables its foreign
// keys reference. Ties and cycles fall back to name order.
func orderByDependency(tables []schema.TableMetadata) []schema.TableMetadata {
	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b schema.TableMetadata) int { return strings.Compare(a.Name, b.Name) })

	inSet := make(map[string]bool, len(sorted))
	for _, t := range sorted {
		inSet[t.Name] = true
	}
	placed := make(map[string]bool, len(sorted))
	out := make([]schema.TableMetadata, 0, len(sorted))
	for len(out) < len(sorted) {
		progress := false
		for _, t := range sorted {
			if placed[t.Name] {
				continue
			}
			ready := true
			for _, fk := range t.ForeignKeys {
				if fk.ReferencedTable != t.Name && inSet[fk.ReferencedTable] && !placed[fk.ReferencedTable] {
					ready = false
					break
				}
			}
			if ready {
				out = append(out, t)
				placed[t.Name] = true
				progress = true
			}
		}
		if !progress {
			for _, t := range sorted {
				if !placed[t.Name] {
					out = append(out, t)
					placed[t.Name] = true
					break
				}
			}
		}
	}
	return out
}

func (p *Planner) generateCreateTable(table *schema.TableMetadata) string {
	var parts []string

	pk := table.PrimaryKeyColumn()
	for _, col := range table.Columns {
		def := p.generateColumnDefinition(col)
		if pk != "" && col.Name == pk {
			def += " PRIMARY KEY"
		}
		parts = append(parts, "    "+def)
	}
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			table.PrimaryKey.Name, strings.Join(table.PrimaryKey.Columns, ", ")))
	}
	for _, fk := range table.ForeignKeys {
		parts = append(parts, "    "+p.generateForeignKeyDefinition(fk))
	}

	create := "CREATE TABLE"
	if p.options.IfNotExists {
		create = "CREATE TABLE IF NOT EXISTS"
	}
	sql := fmt.Sprintf("%s %s (\n%s\n);", create, table.Name, strings.Join(parts, ",\n"))

	var indexes []string
	for _, idx := range table.Indexes {
		indexes = append(indexes, p.generateCreateIndex(table.Name, idx))
	}
	if len(indexes) > 0 {
		sql += "\n\n" + strings.Join(indexes, "\n")
	}
	return sql
}

func (p *Planner) generateColumnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}
	if col.Identity != nil {
		parts = append(parts, fmt.Sprintf("GENERATED %s AS IDENTITY", col.Identity.Generation))
		return strings.Join(parts, " ")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", *col.Default)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

func (p *Planner) generateForeignKeyDefinition(fk schema.ForeignKeyMetadata) string {
	parts := []string{
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s)", fk.Name, strings.Join(fk.Columns, ", ")),
		fmt.Sprintf("REFERENCES %s (%s)", fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", ")),
	}
	if a := action(fk.OnDelete); a != schema.NoAction {
		parts = append(parts, "ON DELETE "+string(a))
	}
	if a := action(fk.OnUpdate); a != schema.NoAction {
		parts = append(parts, "ON UPDATE "+string(a))
	}
	return strings.Join(parts, " ")
}

func (p *Planner) generateCreateIndex(table string, idx schema.IndexMetadata) string {
	create := "CREATE INDEX"
	if p.options.IfNotExists {
		create = "CREATE INDEX IF NOT EXISTS"
	}
	return fmt.Sprintf("%s %s ON %s (%s);", create, idx.Name, table, strings.Join(idx.Columns, ", "))
}

func (p *Planner) generateDropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)
}

// generateAlterTable returns the statements for one table diff. down is in
// the order the statements were generated; the caller reverses it.
func (p *Planner) generateAlterTable(td TableDiff) (up, down []string) {
	t := td.TableName

	for _, fk := range td.ForeignKeysDropped {
		up = append(up, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", t, fk.Name))
		down = append(down, fmt.Sprintf("ALTER TABLE %s ADD %s;", t, p.generateForeignKeyDefinition(fk)))
	}
	for _, idx := range td.IndexesDropped {
		up = append(up, fmt.Sprintf("DROP INDEX IF EXISTS %s;", idx.Name))
		down = append(down, p.generateCreateIndex(t, idx))
	}
	for _, col := range td.ColumnsAdded {
		up = append(up, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", t, p.generateColumnDefinition(col)))
		down = append(down, fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", t, col.Name))
	}
	for _, cd := range td.ColumnsModified {
		u, d := p.generateColumnModification(t, cd)
		up = append(up, u...)
		down = append(down, d...)
	}
	for _, col := range td.ColumnsDropped {
		up = append(up, fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", t, col.Name))
		down = append(down, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", t, p.generateColumnDefinition(col)))
	}
	for _, idx := range td.IndexesAdded {
		up = append(up, p.generateCreateIndex(t, idx))
		down = append(down, fmt.Sprintf("DROP INDEX IF EXISTS %s;", idx.Name))
	}
	for _, fk := range td.ForeignKeysAdded {
		up = append(up, fmt.Sprintf("ALTER TABLE %s ADD %s;", t, p.generateForeignKeyDefinition(fk)))
		down = append(down, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", t, fk.Name))
	}
	return up, down
}

func (p *Planner) generateColumnModification(table string, cd ColumnDiff) (up, down []string) {
	alter := func(clause string) string {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s;", table, cd.ColumnName, clause)
	}
	oldCol, newCol := cd.OldColumn, cd.NewColumn

	if cd.TypeChanged {
		up = append(up, alter(fmt.Sprintf("TYPE %s USING %s::%s", newCol.SQLType, cd.ColumnName, newCol.SQLType)))
		down = append(down, alter(fmt.Sprintf("TYPE %s USING %s::%s", oldCol.SQLType, cd.ColumnName, oldCol.SQLType)))
	}
	if cd.DefaultChanged {
		up = append(up, alter(defaultClause(newCol.Default)))
		down = append(down, alter(defaultClause(oldCol.Default)))
	}
	if cd.NullChanged {
		up = append(up, alter(nullClause(newCol.Nullable)))
		down = append(down, alter(nullClause(oldCol.Nullable)))
	}
	if cd.UniqueChanged {
		constraint := uniqueConstraintName(table, cd.ColumnName)
		add := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);", table, constraint, cd.ColumnName)
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, constraint)
		if newCol.Unique {
			up, down = append(up, add), append(down, drop)
		} else {
			up, down = append(up, drop), append(down, add)
		}
	}
	return up, down
}

func defaultClause(def *string) string {
	if def == nil {
		return "DROP DEFAULT"
	}
	return "SET DEFAULT " + *def
}

func nullClause(nullable bool) string {
	if nullable {
		return "DROP NOT NULL"
	}
	return "SET NOT NULL"
}

// uniqueConstraintName matches the name PostgreSQL gives an inline UNIQUE.
func uniqueConstraintName(table, column string) string {
	return table + "_" + column + "_key"
}

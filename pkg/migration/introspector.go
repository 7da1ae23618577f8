package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/jobstore/pkg/schema"
)

// Queryer is the read side of a pool or connection.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Introspector reads the current schema of the public namespace.
type Introspector struct {
	db Queryer
}

// NewIntrospector creates an introspector. db is usually a *pgxpool.Pool.
func NewIntrospector(db Queryer) *Introspector {
	return &Introspector{db: db}
}

// IntrospectSchema returns every base table except schema_migrations.
func (i *Introspector) IntrospectSchema(ctx context.Context) (map[string]*schema.TableMetadata, error) {
	names, err := i.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	tables := make(map[string]*schema.TableMetadata, len(names))
	for _, name := range names {
		table, err := i.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		tables[name] = table
	}
	return tables, nil
}

// IntrospectTable reads one table's columns, keys and indexes.
func (i *Introspector) IntrospectTable(ctx context.Context, name string) (*schema.TableMetadata, error) {
	table := &schema.TableMetadata{Name: name}

	columns, err := i.columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	table.Columns = columns

	if table.PrimaryKey, err = i.primaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	if table.ForeignKeys, err = i.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	if table.Indexes, err = i.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}

	unique, err := i.uniqueColumns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique constraints: %w", err)
	}
	for idx := range table.Columns {
		table.Columns[idx].Unique = unique[table.Columns[idx].Name]
	}
	return table, nil
}

func (i *Introspector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := i.db.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		  AND table_name != 'schema_migrations'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (i *Introspector) columns(ctx context.Context, table string) ([]schema.ColumnMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT column_name, data_type, udt_name,
		       character_maximum_length, numeric_precision, numeric_scale,
		       is_nullable, column_default, ordinal_position, is_identity, identity_generation
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnMetadata
	for rows.Next() {
		var (
			col                     schema.ColumnMetadata
			dataType, udtName       string
			maxLength, prec, scale  *int32
			isNullable, isIdentity  string
			def, identityGeneration *string
			position                int32
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &maxLength, &prec, &scale,
			&isNullable, &def, &position, &isIdentity, &identityGeneration); err != nil {
			return nil, err
		}
		col.SQLType = buildSQLType(dataType, udtName, maxLength, prec, scale)
		col.Nullable = isNullable == "YES"
		col.Default = def
		col.Position = int(position) - 1
		if def != nil && strings.HasPrefix(*def, "nextval(") {
			col.AutoIncrement = true
		}
		if isIdentity == "YES" && identityGeneration != nil {
			col.Identity = &schema.IdentityColumn{Generation: schema.IdentityGeneration(*identityGeneration)}
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *Introspector) primaryKey(ctx context.Context, table string) (*schema.PrimaryKeyMetadata, error) {
	var pk schema.PrimaryKeyMetadata
	err := i.db.QueryRow(ctx, `
		SELECT con.conname,
		       ARRAY(SELECT a.attname
		             FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		             ORDER BY k.ord)
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = 'public' AND rel.relname = $1 AND con.contype = 'p'`, table).
		Scan(&pk.Name, &pk.Columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

func (i *Introspector) foreignKeys(ctx context.Context, table string) ([]schema.ForeignKeyMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT con.conname,
		       ARRAY(SELECT a.attname
		             FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		             ORDER BY k.ord),
		       ref.relname,
		       ARRAY(SELECT a.attname
		             FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum
		             ORDER BY k.ord),
		       con.confdeltype::text, con.confupdtype::text
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class ref ON ref.oid = con.confrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = 'public' AND rel.relname = $1 AND con.contype = 'f'
		ORDER BY con.conname`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKeyMetadata
	for rows.Next() {
		var fk schema.ForeignKeyMetadata
		var onDelete, onUpdate string
		if err := rows.Scan(&fk.Name, &fk.Columns, &fk.ReferencedTable, &fk.ReferencedColumns, &onDelete, &onUpdate); err != nil {
			return nil, err
		}
		fk.OnDelete = referenceAction(onDelete)
		fk.OnUpdate = referenceAction(onUpdate)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// indexes returns standalone indexes. Indexes backing a primary key or a
// UNIQUE constraint belong to the constraint and are left out.
func (i *Introspector) indexes(ctx context.Context, table string) ([]schema.IndexMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT ic.relname,
		       ARRAY(SELECT a.attname
		             FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		             ORDER BY k.ord)
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_namespace nsp ON nsp.oid = t.relnamespace
		LEFT JOIN pg_constraint con ON con.conindid = ix.indexrelid AND con.contype IN ('p', 'u', 'x')
		WHERE nsp.nspname = 'public' AND t.relname = $1
		  AND NOT ix.indisprimary AND con.oid IS NULL
		ORDER BY ic.relname`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.IndexMetadata
	for rows.Next() {
		var idx schema.IndexMetadata
		if err := rows.Scan(&idx.Name, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// uniqueColumns returns the columns carrying a single-column UNIQUE
// constraint.
func (i *Introspector) uniqueColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := i.db.Query(ctx, `
		SELECT a.attname
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = con.conkey[1]
		WHERE nsp.nspname = 'public' AND rel.relname = $1
		  AND con.contype = 'u' AND array_length(con.conkey, 1) = 1`, table)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}

// buildSQLType renders information_schema type columns the way model tags
// spell them.
func buildSQLType(dataType, udtName string, maxLength, precision, scale *int32) string {
	switch dataType {
	case "character varying":
		if maxLength != nil {
			return fmt.Sprintf("varchar(%d)", *maxLength)
		}
		return "varchar"
	case "character":
		if maxLength != nil {
			return fmt.Sprintf("char(%d)", *maxLength)
		}
		return "char"
	case "numeric":
		if precision != nil && scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *precision, *scale)
		}
		return "numeric"
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "ARRAY":
		if base, ok := strings.CutPrefix(udtName, "_"); ok {
			return normalizeType(base) + "[]"
		}
		return udtName
	case "USER-DEFINED":
		return udtName
	}
	return dataType
}

// referenceAction maps pg_constraint action codes.
func referenceAction(code string) schema.ReferenceAction {
	switch code {
	case "c":
		return schema.Cascade
	case "n":
		return schema.SetNull
	case "d":
		return schema.SetDefault
	case "r":
		return schema.Restrict
	}
	return schema.NoAction
}

package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// TableNamer lets a model choose its own table name.
type TableNamer interface {
	TableName() string
}

// Parser parses struct definitions to extract table metadata.
type Parser struct {
	typeMapper *TypeMapper
	mu         sync.Mutex
	cache      map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		typeMapper: DefaultTypeMapper,
		cache:      make(map[reflect.Type]*TableMetadata),
	}
}

// Parse extracts TableMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:        tableName(modelType),
		GoType:      modelType,
		Columns:     make([]ColumnMetadata, 0, modelType.NumField()),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
		Indexes:     make([]IndexMetadata, 0),
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}
		tagOpts, err := parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}
		if tagOpts.isRelationship() {
			continue
		}

		column, err := p.createColumnMetadata(field, tagOpts, i)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tagOpts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{Name: table.Name + "_pkey"}
			}
			table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
		}
		if tagOpts.Has("index") {
			table.Indexes = append(table.Indexes, IndexMetadata{
				Name:    fmt.Sprintf("idx_%s_%s", table.Name, column.Name),
				Columns: []string{column.Name},
			})
		}
		if fk, ok, err := foreignKeyFromTag(table.Name, column.Name, tagOpts); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		} else if ok {
			table.ForeignKeys = append(table.ForeignKeys, fk)
		}
		table.Columns = append(table.Columns, column)
	}

	if err := p.ParseRelationships(modelType, table); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}

	p.cache[modelType] = table
	return table, nil
}

// tableName uses TableName() when the model implements TableNamer and falls
// back to the snake_case struct name.
func tableName(modelType reflect.Type) string {
	if namer, ok := reflect.New(modelType).Interface().(TableNamer); ok {
		if name := namer.TableName(); name != "" {
			return name
		}
	}
	return toSnakeCase(modelType.Name())
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) (ColumnMetadata, error) {
	column := ColumnMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
	}
	if column.Name == "" {
		column.Name = toSnakeCase(field.Name)
	}

	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else {
		column.SQLType = p.typeMapper.GoTypeToPostgreSQL(field.Type)
	}
	if column.SQLType == "" {
		return column, fmt.Errorf("cannot infer SQL type for %s, set one in the tag", field.Type)
	}

	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	if IsNullable(field.Type) {
		column.Nullable = true
	}
	if opts.Has("default") {
		defaultVal := opts.Get("default")
		if err := ValidateDefaultValue(defaultVal); err != nil {
			return column, err
		}
		column.Default = &defaultVal
	}
	column.Unique = opts.Has("unique")
	column.AutoIncrement = opts.Has("autoIncrement") || opts.Has("serial") ||
		column.SQLType == "serial" || column.SQLType == "bigserial"
	column.AutoUUID = opts.Has("autoUUID")
	column.AutoUpdate = opts.Has("autoUpdate")

	if opts.Has("identity") || opts.Has("identityAlways") {
		column.Identity = &IdentityColumn{Generation: IdentityAlways}
	} else if opts.Has("identityByDefault") {
		column.Identity = &IdentityColumn{Generation: IdentityByDefault}
	}
	return column, nil
}

// foreignKeyFromTag reads fk(table.column) with optional onDelete/onUpdate.
func foreignKeyFromTag(table, column string, opts *TagOptions) (ForeignKeyMetadata, bool, error) {
	ref := opts.Get("fk")
	if ref == "" {
		return ForeignKeyMetadata{}, false, nil
	}
	refTable, refColumn, ok := strings.Cut(ref, ".")
	if !ok || refTable == "" || refColumn == "" {
		return ForeignKeyMetadata{}, false, fmt.Errorf("invalid fk reference %q, want table.column", ref)
	}
	onDelete, err := parseReferenceAction(opts.Get("onDelete"))
	if err != nil {
		return ForeignKeyMetadata{}, false, err
	}
	onUpdate, err := parseReferenceAction(opts.Get("onUpdate"))
	if err != nil {
		return ForeignKeyMetadata{}, false, err
	}
	return ForeignKeyMetadata{
		Name:              fmt.Sprintf("fk_%s_%s", table, column),
		Columns:           []string{column},
		ReferencedTable:   refTable,
		ReferencedColumns: []string{refColumn},
		OnDelete:          onDelete,
		OnUpdate:          onUpdate,
	}, true, nil
}

// parseReferenceAction converts a tag value to a ReferenceAction.
func parseReferenceAction(action string) (ReferenceAction, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(action), "_", "")) {
	case "", "NOACTION", "NO ACTION":
		return NoAction, nil
	case "CASCADE":
		return Cascade, nil
	case "RESTRICT":
		return Restrict, nil
	case "SETNULL", "SET NULL":
		return SetNull, nil
	case "SETDEFAULT", "SET DEFAULT":
		return SetDefault, nil
	}
	return "", fmt.Errorf("unknown referential action %q", action)
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string
	Options map[string]string
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3"
func parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for _, opt := range parts[1:] {
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

func (t *TagOptions) isRelationship() bool {
	return t.Has("belongsTo") || t.Has("hasOne") || t.Has("hasMany")
}

var sqlTypeOptions = []string{
	"uuid", "varchar", "text", "char",
	"smallint", "integer", "bigint", "serial", "bigserial",
	"numeric", "decimal", "real", "double precision",
	"boolean",
	"date", "timestamp", "timestamptz", "interval",
	"json", "jsonb", "bytea", "inet",
	"text[]", "varchar[]", "integer[]", "uuid[]",
}

// GetSQLType returns the SQL type named in the tag, e.g. varchar(255).
func (t *TagOptions) GetSQLType() string {
	for _, pgType := range sqlTypeOptions {
		if t.Has(pgType) {
			if value := t.Get(pgType); value != "" {
				return fmt.Sprintf("%s(%s)", pgType, value)
			}
			return pgType
		}
	}
	return ""
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts PascalCase to snake_case, keeping acronyms together
// (URL -> url, LogoURL -> logo_url).
func toSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, ch := range runes {
		upper := ch >= 'A' && ch <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}

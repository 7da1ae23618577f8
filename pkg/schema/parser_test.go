package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type Author struct {
	ID        string    `po:"id,primaryKey,uuid,autoUUID"`
	Email     string    `po:"email,varchar(320),unique,notNull"`
	Nickname  *string   `po:"nickname,varchar(50)"`
	Tags      []string  `po:"tags,text[]"`
	CreatedAt time.Time `po:"created_at,default(now()),notNull"`
	UpdatedAt time.Time `po:"updated_at,default(now()),notNull,autoUpdate"`
	Books     []Book    `po:"-,hasMany,foreignKey(author_id)"`
}

type Book struct {
	ID       int64           `po:"id,primaryKey,bigserial"`
	AuthorID string          `po:"author_id,uuid,notNull,index,fk(authors.id),onDelete(cascade)"`
	Price    decimal.Decimal `po:"price,numeric(10,2),notNull"`
	Author   *Author         `po:"-,belongsTo,foreignKey(author_id)"`
}

func (Author) TableName() string { return "authors" }
func (Book) TableName() string   { return "books" }

type BadDefault struct {
	ID string `po:"id,primaryKey,uuid,default(gen_random_uuid)"`
}

type UnknownType struct {
	ID    string   `po:"id,primaryKey,uuid"`
	Other struct{} `po:"other"`
}

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	t.Run("columns and constraints", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(Author{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if table.Name != "authors" {
			t.Errorf("expected table name authors, got %s", table.Name)
		}
		if len(table.Columns) != 6 {
			t.Fatalf("expected 6 columns, got %d", len(table.Columns))
		}
		if table.PrimaryKeyColumn() != "id" {
			t.Errorf("expected primary key id, got %q", table.PrimaryKeyColumn())
		}

		id := table.GetColumn("id")
		if id.Nullable || !id.AutoUUID || id.SQLType != "uuid" {
			t.Errorf("unexpected id column: %+v", id)
		}
		email := table.GetColumn("email")
		if !email.Unique || email.Nullable || email.SQLType != "varchar(320)" {
			t.Errorf("unexpected email column: %+v", email)
		}
		if !table.IsUniqueKey("email") || table.IsUniqueKey("nickname") {
			t.Error("IsUniqueKey mismatch")
		}
		nick := table.GetColumnByField("Nickname")
		if nick == nil || !nick.Nullable {
			t.Errorf("pointer field should be nullable: %+v", nick)
		}
		if got := table.GetColumn("tags").SQLType; got != "text[]" {
			t.Errorf("expected text[], got %s", got)
		}
		created := table.GetColumn("created_at")
		if created.SQLType != "timestamptz" || created.Default == nil || *created.Default != "now()" {
			t.Errorf("unexpected created_at column: %+v", created)
		}
		if !table.GetColumn("updated_at").AutoUpdate {
			t.Error("updated_at should be autoUpdate")
		}
	})

	t.Run("foreign keys and indexes", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(&Book{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !table.GetColumn("id").AutoIncrement {
			t.Error("bigserial id should be auto increment")
		}
		fk := table.ForeignKeyFor("author_id")
		if fk == nil {
			t.Fatal("expected foreign key on author_id")
		}
		if fk.ReferencedTable != "authors" || fk.ReferencedColumns[0] != "id" {
			t.Errorf("unexpected reference: %+v", fk)
		}
		if fk.OnDelete != Cascade || fk.OnUpdate != NoAction {
			t.Errorf("unexpected actions: %s / %s", fk.OnDelete, fk.OnUpdate)
		}
		if len(table.Indexes) != 1 || table.Indexes[0].Name != "idx_books_author_id" {
			t.Errorf("unexpected indexes: %+v", table.Indexes)
		}
		if got := table.GetColumn("price").SQLType; got != "numeric(10,2)" {
			t.Errorf("expected numeric(10,2), got %s", got)
		}
	})

	t.Run("relationships", func(t *testing.T) {
		author, _ := parser.Parse(reflect.TypeOf(Author{}))
		rel := author.GetRelationship("Books")
		if rel == nil || rel.Type != HasMany || rel.ForeignKey != "author_id" || rel.References != "id" {
			t.Fatalf("unexpected relationship: %+v", rel)
		}
		if rel.TargetType != reflect.TypeOf(Book{}) {
			t.Errorf("unexpected target type %s", rel.TargetType)
		}

		book, _ := parser.Parse(reflect.TypeOf(Book{}))
		rel = book.GetRelationship("Author")
		if rel == nil || rel.Type != BelongsTo || rel.TargetType != reflect.TypeOf(Author{}) {
			t.Fatalf("unexpected relationship: %+v", rel)
		}
	})

	t.Run("cache returns same metadata", func(t *testing.T) {
		a, _ := parser.Parse(reflect.TypeOf(Author{}))
		b, _ := parser.Parse(reflect.TypeOf(&Author{}))
		if a != b {
			t.Error("expected cached metadata")
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := parser.Parse(reflect.TypeOf(42)); err == nil {
			t.Error("expected error for non-struct")
		}
		if _, err := parser.Parse(reflect.TypeOf(BadDefault{})); err == nil {
			t.Error("expected error for default missing parentheses")
		}
		if _, err := parser.Parse(reflect.TypeOf(UnknownType{})); err == nil {
			t.Error("expected error for field without SQL type")
		}
	})
}

func TestParseReferenceAction(t *testing.T) {
	tests := []struct {
		in      string
		want    ReferenceAction
		wantErr bool
	}{
		{"", NoAction, false},
		{"cascade", Cascade, false},
		{"restrict", Restrict, false},
		{"setNull", SetNull, false},
		{"set_default", SetDefault, false},
		{"explode", "", true},
	}
	for _, tt := range tests {
		got, err := parseReferenceAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseReferenceAction(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseReferenceAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"JobPosting":   "job_posting",
		"LogoURL":      "logo_url",
		"ID":           "id",
		"StoreSetting": "store_setting",
		"URLPath":      "url_path",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateDefaultValue(t *testing.T) {
	valid := []string{"now()", "0", "'active'", "true", "FALSE", "gen_random_uuid()", "CURRENT_TIMESTAMP", "-1.5"}
	for _, v := range valid {
		if err := ValidateDefaultValue(v); err != nil {
			t.Errorf("ValidateDefaultValue(%q) unexpected error: %v", v, err)
		}
	}
	invalid := []string{"", "CURRENT TIMESTAMP", "NOW ()", "gen_random_uuid", "now"}
	for _, v := range invalid {
		if err := ValidateDefaultValue(v); err == nil {
			t.Errorf("ValidateDefaultValue(%q) expected error", v)
		}
	}
}

package migration

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marshallshelly/jobstore/pkg/schema"
)

func TestGenerateVersion(t *testing.T) {
	version := GenerateVersion()

	if len(version) != 14 {
		t.Errorf("Expected version length 14, got %d", len(version))
	}
	for _, c := range version {
		if c < '0' || c > '9' {
			t.Errorf("Expected numeric version, got %s", version)
			break
		}
	}
}

func TestGenerateFileName(t *testing.T) {
	tests := []struct {
		version   string
		name      string
		direction string
		expected  string
	}{
		{"20260101120000", "create_products", "up", "20260101120000_create_products.up.sql"},
		{"20260101120000", "create_products", "down", "20260101120000_create_products.down.sql"},
		{"20260215153045", "add_sku_index", "up", "20260215153045_add_sku_index.up.sql"},
	}
	for _, tt := range tests {
		if got := GenerateFileName(tt.version, tt.name, tt.direction); got != tt.expected {
			t.Errorf("GenerateFileName(%q, %q, %q) = %q, want %q", tt.version, tt.name, tt.direction, got, tt.expected)
		}
	}
}

func TestGeneratorGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	gen := NewGenerator(dir)

	diff := &SchemaDiff{TablesAdded: []schema.TableMetadata{productsTable()}}
	file, err := gen.Generate("create_products", diff)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	up, err := os.ReadFile(file.UpPath)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	if !strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS products (") {
		t.Errorf("up migration missing CREATE TABLE:\n%s", up)
	}
	down, err := os.ReadFile(file.DownPath)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	if string(down) != "DROP TABLE IF EXISTS products CASCADE;\n" {
		t.Errorf("down migration = %q", down)
	}
	if filepath.Base(file.UpPath) != file.Version+"_create_products.up.sql" {
		t.Errorf("unexpected up file name %s", file.UpPath)
	}
}

func TestGeneratorGenerateNoChanges(t *testing.T) {
	gen := NewGenerator(t.TempDir())
	if _, err := gen.Generate("noop", &SchemaDiff{}); !errors.Is(err, ErrNoChanges) {
		t.Errorf("Generate() error = %v, want ErrNoChanges", err)
	}
}

func TestGeneratorRejectsInvalidName(t *testing.T) {
	gen := NewGenerator(t.TempDir())
	for _, name := range []string{"Create Products", "drop-table", ""} {
		if _, err := gen.GenerateEmpty(name); err == nil {
			t.Errorf("GenerateEmpty(%q) error = nil, want invalid name", name)
		}
	}
}

func TestGeneratorGenerateEmpty(t *testing.T) {
	gen := NewGenerator(t.TempDir())
	file, err := gen.GenerateEmpty("backfill_views")
	if err != nil {
		t.Fatalf("GenerateEmpty() error = %v", err)
	}
	up, _ := os.ReadFile(file.UpPath)
	if !strings.Contains(string(up), "-- Migration: backfill_views") {
		t.Errorf("unexpected template:\n%s", up)
	}
	m, err := gen.ReadMigration(*file)
	if err != nil {
		t.Fatalf("ReadMigration() error = %v", err)
	}
	if len(splitSQL(m.UpSQL)) != 0 {
		t.Errorf("empty template should hold no statements")
	}
}

func TestListMigrationsPairsAndSorts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("20260301000000_add_sku.up.sql", "ALTER TABLE products ADD COLUMN sku text;")
	write("20260301000000_add_sku.down.sql", "ALTER TABLE products DROP COLUMN sku;")
	write("20260101000000_init.up.sql", "CREATE TABLE a (id int);")
	write("20260101000000_init.down.sql", "DROP TABLE a;")
	write("20260401000000_orphan.up.sql", "SELECT 1;")
	write("README.md", "notes")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	gen := NewGenerator(dir)
	files, err := gen.ListMigrations()
	if err != nil {
		t.Fatalf("ListMigrations() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListMigrations() returned %d files, want 2", len(files))
	}
	if files[0].Version != "20260101000000" || files[0].Name != "init" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Name != "add_sku" {
		t.Errorf("files[1] = %+v", files[1])
	}

	migrations, err := gen.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if migrations[1].DownSQL != "ALTER TABLE products DROP COLUMN sku;" {
		t.Errorf("LoadAll()[1].DownSQL = %q", migrations[1].DownSQL)
	}
}

func TestListMigrationsMissingDir(t *testing.T) {
	files, err := NewGenerator(filepath.Join(t.TempDir(), "absent")).ListMigrations()
	if err != nil || files != nil {
		t.Errorf("ListMigrations() = %v, %v; want nil, nil", files, err)
	}
}

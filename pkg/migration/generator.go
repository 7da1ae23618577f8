package migration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrNoChanges is returned by Generate when the diff is empty.
var ErrNoChanges = errors.New("no schema changes detected")

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

// Generator writes and reads migration files in one directory.
type Generator struct {
	migrationsDir string
	planner       *Planner
}

// NewGenerator creates a generator for migrationsDir.
func NewGenerator(migrationsDir string) *Generator {
	return &Generator{migrationsDir: migrationsDir, planner: NewPlanner()}
}

// Dir returns the migrations directory.
func (g *Generator) Dir() string { return g.migrationsDir }

// Generate writes up and down files for diff.
func (g *Generator) Generate(name string, diff *SchemaDiff) (*MigrationFile, error) {
	if !diff.HasChanges() {
		return nil, ErrNoChanges
	}
	up, down := g.planner.GenerateMigration(diff)
	return g.write(name, up, down)
}

// GenerateEmpty writes a pair of files to be filled in by hand.
func (g *Generator) GenerateEmpty(name string) (*MigrationFile, error) {
	up := fmt.Sprintf("-- Migration: %s\n\n-- Write your UP migration here\n", name)
	down := fmt.Sprintf("-- Migration: %s\n\n-- Write your DOWN migration here\n", name)
	return g.write(name, up, down)
}

func (g *Generator) write(name, up, down string) (*MigrationFile, error) {
	if !migrationName.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use lowercase letters, digits and underscores", name)
	}
	if err := os.MkdirAll(g.migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := GenerateVersion()
	file := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(g.migrationsDir, GenerateFileName(version, name, "up")),
		DownPath: filepath.Join(g.migrationsDir, GenerateFileName(version, name, "down")),
	}
	if err := os.WriteFile(file.UpPath, []byte(up), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := os.WriteFile(file.DownPath, []byte(down), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}
	return file, nil
}

// ListMigrations returns the complete up/down pairs sorted by version. A
// missing directory yields no migrations.
func (g *Generator) ListMigrations() ([]MigrationFile, error) {
	entries, err := os.ReadDir(g.migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[string]*MigrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		version, rest, ok := strings.Cut(fileName, "_")
		if !ok {
			continue
		}
		var name string
		var up bool
		if before, ok := strings.CutSuffix(rest, ".up.sql"); ok {
			name, up = before, true
		} else if before, ok := strings.CutSuffix(rest, ".down.sql"); ok {
			name = before
		} else {
			continue
		}
		mf, exists := byVersion[version]
		if !exists {
			mf = &MigrationFile{Version: version, Name: name}
			byVersion[version] = mf
		}
		if up {
			mf.UpPath = filepath.Join(g.migrationsDir, fileName)
		} else {
			mf.DownPath = filepath.Join(g.migrationsDir, fileName)
		}
	}

	var files []MigrationFile
	for _, mf := range byVersion {
		if mf.UpPath != "" && mf.DownPath != "" {
			files = append(files, *mf)
		}
	}
	slices.SortFunc(files, func(a, b MigrationFile) int { return strings.Compare(a.Version, b.Version) })
	return files, nil
}

// ReadMigration loads the SQL of file.
func (g *Generator) ReadMigration(file MigrationFile) (*Migration, error) {
	up, err := os.ReadFile(file.UpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read up migration: %w", err)
	}
	down, err := os.ReadFile(file.DownPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read down migration: %w", err)
	}
	return &Migration{
		Version: file.Version,
		Name:    file.Name,
		UpSQL:   string(up),
		DownSQL: string(down),
	}, nil
}

// LoadAll reads every migration in the directory in version order.
func (g *Generator) LoadAll() ([]Migration, error) {
	files, err := g.ListMigrations()
	if err != nil {
		return nil, err
	}
	migrations := make([]Migration, 0, len(files))
	for _, f := range files {
		m, err := g.ReadMigration(f)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", f.Version, err)
		}
		migrations = append(migrations, *m)
	}
	return migrations, nil
}

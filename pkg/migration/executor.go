package migration

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultLockID keys the advisory lock held while migrating.
const defaultLockID int64 = 7_311_204_817

// Executor applies migrations and records them in schema_migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64
	logger *slog.Logger
}

// NewExecutor creates an executor over pool.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool, lockID: defaultLockID, logger: slog.Default()}
}

// WithLockID sets a custom advisory lock key.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// WithLogger sets the logger used for progress messages.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Initialize creates schema_migrations if it does not exist.
func (e *Executor) Initialize(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the migration advisory lock. The lock is
// session scoped, so it is taken and released on one dedicated connection.
func (e *Executor) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration lock: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", e.lockID); err != nil {
			e.logger.Warn("failed to release migration lock", slog.String("error", err.Error()))
		}
	}()
	return fn(ctx)
}

// GetAllMigrations returns every schema_migrations row in version order.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MigrationRecord, error) {
		var r MigrationRecord
		err := row.Scan(&r.Version, &r.Name, &r.Status, &r.AppliedAt, &r.Error)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration record: %w", err)
	}
	return records, nil
}

func (e *Executor) appliedVersions(ctx context.Context) (map[string]bool, error) {
	records, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == StatusApplied {
			applied[r.Version] = true
		}
	}
	return applied, nil
}

// Apply runs m.UpSQL in a transaction and marks it applied. On failure the
// transaction is rolled back and the error recorded against the version.
func (e *Executor) Apply(ctx context.Context, m Migration, dryRun bool) error {
	if dryRun {
		e.logger.Info("would apply migration", slog.String("version", m.Version), slog.String("name", m.Name))
		return nil
	}

	err := pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		if err := execStatements(ctx, tx, m.UpSQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO schema_migrations (version, name, status, applied_at, error)
			VALUES ($1, $2, 'applied', NOW(), NULL)
			ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = NOW(), error = NULL`,
			m.Version, m.Name)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		e.recordFailure(ctx, m, err)
		return err
	}
	e.logger.Info("applied migration", slog.String("version", m.Version), slog.String("name", m.Name))
	return nil
}

func (e *Executor) recordFailure(ctx context.Context, m Migration, cause error) {
	_, err := e.pool.Exec(context.WithoutCancel(ctx), `
		INSERT INTO schema_migrations (version, name, status, error)
		VALUES ($1, $2, 'failed', $3)
		ON CONFLICT (version) DO UPDATE SET status = 'failed', error = EXCLUDED.error`,
		m.Version, m.Name, cause.Error())
	if err != nil {
		e.logger.Warn("failed to record migration failure",
			slog.String("version", m.Version),
			slog.String("error", err.Error()))
	}
}

// Rollback runs m.DownSQL in a transaction and forgets the version.
func (e *Executor) Rollback(ctx context.Context, m Migration, dryRun bool) error {
	if dryRun {
		e.logger.Info("would roll back migration", slog.String("version", m.Version), slog.String("name", m.Name))
		return nil
	}
	err := pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		if err := execStatements(ctx, tx, m.DownSQL); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", m.Version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rollback of %s failed: %w", m.Version, err)
	}
	e.logger.Info("rolled back migration", slog.String("version", m.Version), slog.String("name", m.Name))
	return nil
}

// ApplyAll applies every pending migration in version order under the lock
// and returns the ones applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, dryRun bool) ([]Migration, error) {
	var done []Migration
	err := e.WithLock(ctx, func(ctx context.Context) error {
		applied, err := e.appliedVersions(ctx)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			if applied[m.Version] {
				continue
			}
			if err := e.Apply(ctx, m, dryRun); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
			}
			done = append(done, m)
		}
		return nil
	})
	return done, err
}

// RollbackSteps rolls back the last steps applied migrations.
func (e *Executor) RollbackSteps(ctx context.Context, migrations []Migration, steps int, dryRun bool) ([]Migration, error) {
	return e.rollbackWhile(ctx, migrations, dryRun, func(i int, _ string) bool { return i < steps })
}

// RollbackTo rolls back every applied migration newer than target.
func (e *Executor) RollbackTo(ctx context.Context, migrations []Migration, target string, dryRun bool) ([]Migration, error) {
	return e.rollbackWhile(ctx, migrations, dryRun, func(_ int, version string) bool { return version > target })
}

func (e *Executor) rollbackWhile(ctx context.Context, migrations []Migration, dryRun bool, keep func(i int, version string) bool) ([]Migration, error) {
	byVersion := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	var done []Migration
	err := e.WithLock(ctx, func(ctx context.Context) error {
		applied, err := e.appliedVersions(ctx)
		if err != nil {
			return err
		}
		versions := make([]string, 0, len(applied))
		for v := range applied {
			versions = append(versions, v)
		}
		slices.Sort(versions)
		slices.Reverse(versions)

		for i, v := range versions {
			if !keep(i, v) {
				break
			}
			m, ok := byVersion[v]
			if !ok {
				return fmt.Errorf("migration file not found for version %s", v)
			}
			if err := e.Rollback(ctx, m, dryRun); err != nil {
				return err
			}
			done = append(done, m)
		}
		return nil
	})
	return done, err
}

// GetStatus merges the files on disk with schema_migrations.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	records, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return mergeStatus(migrations, records), nil
}

func mergeStatus(migrations []Migration, records []MigrationRecord) []MigrationRecord {
	byVersion := make(map[string]MigrationRecord, len(records))
	for _, r := range records {
		byVersion[r.Version] = r
	}
	out := make([]MigrationRecord, 0, len(migrations))
	for _, m := range migrations {
		if r, ok := byVersion[m.Version]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, MigrationRecord{Version: m.Version, Name: m.Name, Status: StatusPending})
	}
	return out
}

// Validate reports applied versions with no file on disk.
func (e *Executor) Validate(ctx context.Context, migrations []Migration) error {
	records, err := e.GetAllMigrations(ctx)
	if err != nil {
		return err
	}
	return missingFiles(migrations, records)
}

func missingFiles(migrations []Migration, records []MigrationRecord) error {
	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.Version] = true
	}
	var missing []string
	for _, r := range records {
		if !known[r.Version] {
			missing = append(missing, r.Version)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing migration files: %s", strings.Join(missing, ", "))
	}
	return nil
}

func execStatements(ctx context.Context, tx pgx.Tx, sql string) error {
	for i, stmt := range splitSQL(sql) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}
	return nil
}

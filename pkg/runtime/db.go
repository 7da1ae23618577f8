package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection pool.
type DB struct {
	pool   *pgxpool.Pool
	config *Config
	logger *slog.Logger
}

// NewDB creates a new DB instance from an existing connection pool.
func NewDB(pool *pgxpool.Pool, config *Config) *DB {
	if config == nil {
		config = DefaultConfig()
	}
	return &DB{
		pool:   pool,
		config: config,
		logger: NewLogger(config),
	}
}

// Connect creates a pool from config and verifies it with a ping.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	if config == nil || config.DatasourceURL == "" {
		return nil, NewError(KindValidation, "datasource URL is required")
	}
	if err := config.Validate(); err != nil {
		return nil, NewError(KindValidation, "%v", err)
	}
	logger := NewLogger(config)

	poolConfig, err := pgxpool.ParseConfig(config.DatasourceURL)
	if err != nil {
		return nil, NewError(KindValidation, "failed to parse datasource URL: %v", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.LogQueries {
		poolConfig.ConnConfig.Tracer = NewQueryTracer(logger)
	}

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, connectionError("failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connectionError("failed to ping database", err)
	}

	logger.Debug("connected to database",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)))

	return &DB{pool: pool, config: config, logger: logger}, nil
}

// ConnectWithURL connects with default settings and the given URL.
func ConnectWithURL(ctx context.Context, url string) (*DB, error) {
	config := DefaultConfig()
	config.DatasourceURL = url
	return Connect(ctx, config)
}

func connectionError(msg string, err error) error {
	kind := Classify(err)
	if kind == KindUnknown {
		kind = KindConnection
	}
	return &Error{Kind: kind, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Config returns the configuration the DB was created with.
func (db *DB) Config() *Config {
	return db.config
}

// Logger returns the logger built from the configuration.
func (db *DB) Logger() *slog.Logger {
	return db.logger
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.pool == nil {
		return &Error{Kind: KindConnection, Err: ErrNoConnection}
	}
	return db.wrap(db.pool.Ping(ctx), "")
}

// BeginTx starts a new transaction with options.
func (db *DB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if db == nil || db.pool == nil {
		return nil, &Error{Kind: KindConnection, Err: ErrNoConnection}
	}
	tx, err := db.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, db.wrap(err, "BEGIN")
	}
	return tx, nil
}

// Exec executes a query without returning any rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if db == nil || db.pool == nil {
		return 0, &Error{Kind: KindConnection, Err: ErrNoConnection, Query: sql}
	}
	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, db.wrap(err, sql)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if db == nil || db.pool == nil {
		return nil, &Error{Kind: KindConnection, Err: ErrNoConnection, Query: sql}
	}
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.wrap(err, sql)
	}
	return rows, nil
}

// QueryRow executes a query that returns at most one row. Scan errors are
// classified like Query errors.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if db == nil || db.pool == nil {
		return errRow{err: &Error{Kind: KindConnection, Err: ErrNoConnection, Query: sql}}
	}
	return WrapRow(db.pool.QueryRow(ctx, sql, args...), sql, db.ErrorFormat())
}

// ErrorFormat returns the configured error rendering.
func (db *DB) ErrorFormat() ErrorFormat {
	if db == nil || db.config == nil {
		return ErrorFormatMinimal
	}
	return db.config.ErrorFormat
}

func (db *DB) wrap(err error, sql string) error {
	return WrapFormat(err, sql, db.ErrorFormat())
}

// WrapRow wraps a pgx.Row so Scan returns classified errors.
func WrapRow(row pgx.Row, sql string, format ErrorFormat) pgx.Row {
	return wrappedRow{row: row, sql: sql, format: format}
}

type wrappedRow struct {
	row    pgx.Row
	sql    string
	format ErrorFormat
}

func (r wrappedRow) Scan(dest ...any) error {
	return WrapFormat(r.row.Scan(dest...), r.sql, r.format)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

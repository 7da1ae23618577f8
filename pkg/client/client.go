// Package client is the data-access entry point: one delegate per model with
// the full operation set, plus transactions and raw queries.
package client

import (
	"context"
	"log/slog"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/models"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// Client groups the model delegates. A Client obtained inside Transaction
// runs every operation in that transaction.
type Client struct {
	db     *runtime.DB
	q      builder.Querier
	tx     *builder.Tx
	cfg    *runtime.Config
	logger *slog.Logger

	Administrator *Delegate[models.Administrator, models.AdministratorUpdate]
	JobPosting    *Delegate[models.JobPosting, models.JobPostingUpdate]
	Employer      *Delegate[models.Employer, models.EmployerUpdate]
	JobSeeker     *Delegate[models.JobSeeker, models.JobSeekerUpdate]
	Resume        *Delegate[models.Resume, models.ResumeUpdate]
	Product       *Delegate[models.Product, models.ProductUpdate]
	Order         *Delegate[models.Order, models.OrderUpdate]
	Discount      *Delegate[models.Discount, models.DiscountUpdate]
	StoreSetting  *Delegate[models.StoreSetting, models.StoreSettingUpdate]
}

// Connect opens a pool from cfg and returns a client over it.
func Connect(ctx context.Context, cfg *runtime.Config) (*Client, error) {
	db, err := runtime.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New returns a client over an open runtime DB and registers the models.
func New(db *runtime.DB) (*Client, error) {
	if err := models.RegisterAll(); err != nil {
		return nil, err
	}
	cfg := db.Config()
	logger := db.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return newClient(db, builder.New(db), nil, cfg, logger), nil
}

// NewWithQuerier returns a client running against q, typically a test
// double.
func NewWithQuerier(q builder.Querier, cfg *runtime.Config) (*Client, error) {
	if err := models.RegisterAll(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = runtime.DefaultConfig()
	}
	return newClient(nil, q, nil, cfg, slog.Default()), nil
}

func newClient(db *runtime.DB, q builder.Querier, tx *builder.Tx, cfg *runtime.Config, logger *slog.Logger) *Client {
	return &Client{
		db:     db,
		q:      q,
		tx:     tx,
		cfg:    cfg,
		logger: logger,

		Administrator: NewDelegate[models.Administrator, models.AdministratorUpdate](q, cfg),
		JobPosting:    NewDelegate[models.JobPosting, models.JobPostingUpdate](q, cfg),
		Employer:      NewDelegate[models.Employer, models.EmployerUpdate](q, cfg),
		JobSeeker:     NewDelegate[models.JobSeeker, models.JobSeekerUpdate](q, cfg),
		Resume:        NewDelegate[models.Resume, models.ResumeUpdate](q, cfg),
		Product:       NewDelegate[models.Product, models.ProductUpdate](q, cfg),
		Order:         NewDelegate[models.Order, models.OrderUpdate](q, cfg),
		Discount:      NewDelegate[models.Discount, models.DiscountUpdate](q, cfg),
		StoreSetting:  NewDelegate[models.StoreSetting, models.StoreSettingUpdate](q, cfg),
	}
}

// Close closes the pool. It is a no-op on transaction-scoped clients.
func (c *Client) Close() {
	if c.tx == nil && c.db != nil {
		c.db.Close()
	}
}

// DB returns the runtime DB, nil for clients built on a bare Querier.
func (c *Client) DB() *runtime.DB { return c.db }

// Querier returns the pool or transaction operations run against.
func (c *Client) Querier() builder.Querier { return c.q }

// Config returns the client configuration.
func (c *Client) Config() *runtime.Config { return c.cfg }

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// InTransaction reports whether c is scoped to a transaction.
func (c *Client) InTransaction() bool { return c.tx != nil }

// ExecuteRaw runs a statement and returns the number of affected rows.
func (c *Client) ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	return c.q.Exec(ctx, sql, args...)
}

// QueryRaw runs a query and returns each row as a column-keyed map.
func (c *Client) QueryRaw(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := builder.ScanMaps(rows)
	if err != nil {
		return nil, runtime.WrapFormat(err, sql, c.cfg.ErrorFormat)
	}
	return out, nil
}

// QueryRawAs runs a query and scans the rows into the registered model T.
func QueryRawAs[T any](ctx context.Context, c *Client, sql string, args ...any) ([]T, error) {
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := builder.ScanAll[T](rows)
	if err != nil {
		return nil, runtime.WrapFormat(err, sql, c.cfg.ErrorFormat)
	}
	return out, nil
}

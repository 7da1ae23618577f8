// Package maintenance runs the periodic cleanup jobs of the store: expiring
// job postings past their deadline and switching off spent discounts.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/client"
	"github.com/marshallshelly/jobstore/pkg/models"
)

// Report counts the rows changed by one sweep.
type Report struct {
	ExpiredPostings      int64
	DeactivatedDiscounts int64
}

// Sweeper wraps robfig/cron and runs RunOnce on a schedule.
type Sweeper struct {
	client *client.Client
	cron   *cron.Cron
	spec   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper validates spec (standard cron syntax or a descriptor such as
// "@every 15m") and returns an idle sweeper.
func NewSweeper(c *client.Client, spec string, opts ...Option) (*Sweeper, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	logger := c.Logger().With(slog.String("component", "sweeper"))
	s := &Sweeper{
		client: c,
		spec:   spec,
		now:    time.Now,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	now := s.now()

	expired := models.StatusExpired
	postings, err := s.client.JobPosting.UpdateMany(ctx, client.UpdateManyArgs[models.JobPostingUpdate]{
		Where: []builder.Condition{
			builder.Eq("status", models.StatusActive),
			builder.Lt("expires_at", now),
		},
		Data: models.JobPostingUpdate{Status: &expired},
	})
	if err != nil {
		return report, fmt.Errorf("expire job postings: %w", err)
	}
	report.ExpiredPostings = postings.Count

	inactive := false
	discounts, err := s.client.Discount.UpdateMany(ctx, client.UpdateManyArgs[models.DiscountUpdate]{
		Where: []builder.Condition{
			builder.Eq("active", true),
			builder.AnyOf(
				builder.Lt("expires_at", now),
				builder.Group(builder.Gt("max_uses", 0), builder.Expr("used_count >= max_uses")),
			),
		},
		Data: models.DiscountUpdate{Active: &inactive},
	})
	if err != nil {
		return report, fmt.Errorf("deactivate discounts: %w", err)
	}
	report.DeactivatedDiscounts = discounts.Count
	return report, nil
}

// Start schedules the sweep and returns immediately. Each run uses ctx.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		report, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error("sweep failed", slog.String("error", err.Error()))
			return
		}
		s.logger.Info("sweep complete",
			slog.Int64("expired_postings", report.ExpiredPostings),
			slog.Int64("deactivated_discounts", report.DeactivatedDiscounts))
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("sweeper started", slog.String("schedule", s.spec))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

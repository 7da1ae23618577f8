// Package settings reads and writes storefront key/value settings with an
// optional Redis cache in front of the store_settings table.
package settings

import (
	"context"
	"log/slog"
	"time"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/client"
	"github.com/marshallshelly/jobstore/pkg/models"
)

// Store is safe for concurrent use when its cache is.
type Store struct {
	settings *client.Delegate[models.StoreSetting, models.StoreSettingUpdate]
	cache    Cache
	ttl      time.Duration
	logger   *slog.Logger

	// inTx is set for stores over a transaction-scoped client. They read
	// around the cache and evict on write.
	inTx bool
}

// NewStore creates a store over c. cache may be nil.
func NewStore(c *client.Client, cache Cache, ttl time.Duration) *Store {
	return &Store{
		settings: c.StoreSetting,
		cache:    cache,
		ttl:      ttl,
		logger:   c.Logger().With(slog.String("component", "settings")),
		inTx:     c.InTransaction(),
	}
}

// Get returns the value of key. A missing key is a NotFound error. Cache
// failures are logged and the database is used instead.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if s.cache != nil && !s.inTx {
		value, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("settings cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		case ok:
			return value, nil
		}
	}

	setting, err := s.settings.FindUniqueOrThrow(ctx, client.UniqueArgs{
		Where: []builder.Condition{builder.Eq("key", key)},
	})
	if err != nil {
		return "", err
	}
	if !s.inTx {
		s.remember(ctx, key, setting.Value)
	}
	return setting.Value, nil
}

// Set creates or replaces key. Inside a transaction the cached value is
// evicted rather than replaced.
func (s *Store) Set(ctx context.Context, key, value string) (*models.StoreSetting, error) {
	setting, err := s.settings.Upsert(ctx, client.UpsertArgs[models.StoreSetting, models.StoreSettingUpdate]{
		Where:  []builder.Condition{builder.Eq("key", key)},
		Create: models.StoreSetting{Key: key, Value: value},
		Update: models.StoreSettingUpdate{Value: &value},
	})
	if err != nil {
		return nil, err
	}
	if s.inTx {
		s.forget(ctx, key)
	} else {
		s.remember(ctx, key, setting.Value)
	}
	return setting, nil
}

// Delete removes key and evicts it from the cache.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.settings.Delete(ctx, client.UniqueArgs{
		Where: []builder.Condition{builder.Eq("key", key)},
	})
	if err != nil {
		return err
	}
	s.forget(ctx, key)
	return nil
}

// All returns every setting ordered by key. It always reads the database.
func (s *Store) All(ctx context.Context) ([]models.StoreSetting, error) {
	return s.settings.FindMany(ctx, client.FindArgs{
		OrderBy: []builder.OrderBy{{Column: "key", Direction: builder.Asc}},
	})
}

func (s *Store) remember(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("settings cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Store) forget(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("settings cache evict failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

package snapshot

import (
	"context"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

// Store is a snapshot source that can also persist snapshots
type Store interface {
	contracts.SnapshotSource
	contracts.SnapshotSink
}

// Cached fronts a Store with the Redis cache. Cache failures are logged
// and fall through to the store.
type Cached struct {
	store  Store
	cache  *redis.Cache
	logger *logger.Logger
}

// NewCached wraps store with cache
func NewCached(store Store, cache *redis.Cache, log *logger.Logger) *Cached {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cached{store: store, cache: cache, logger: log.Component("snapshot")}
}

// Latest serves the cached snapshot or loads and caches it
func (c *Cached) Latest(ctx context.Context) (*contracts.Snapshot, error) {
	var snap contracts.Snapshot
	found, err := c.cache.Get(ctx, redis.SnapshotKey(), &snap)
	if err != nil {
		c.logger.WithError(err).Warn("Snapshot cache read failed")
	} else if found {
		return &snap, nil
	}

	latest, err := c.store.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, redis.SnapshotKey(), latest, redis.TTLShort); err != nil {
		c.logger.WithError(err).Warn("Snapshot cache write failed")
	}
	return latest, nil
}

// Save persists the snapshot and drops the cached copy
func (c *Cached) Save(ctx context.Context, snap *contracts.Snapshot) error {
	if err := c.store.Save(ctx, snap); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, redis.SnapshotKey()); err != nil {
		c.logger.WithError(err).Warn("Snapshot cache invalidation failed")
	}
	return nil
}

package filestorage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librarease/images/internal/usecase"
)

const cacheKeyPrefix = "images:"

// CachedStorage is a read-through Redis cache in front of another provider.
// Assets are immutable, so only deletes need to invalidate. A fill is
// re-checked against the provider so a concurrent delete cannot leave a
// stale entry behind. Cache failures are logged and fall through to the
// underlying provider.
type CachedStorage struct {
	next   usecase.FileStorageProvider
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStorage(next usecase.FileStorageProvider, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStorage{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedStorage) Put(ctx context.Context, partition, key string, data []byte) error {
	return c.next.Put(ctx, partition, key, data)
}

func (c *CachedStorage) Get(ctx context.Context, partition, key string) ([]byte, error) {
	ck := cacheKey(partition, key)

	b, err := c.rdb.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		return b, nil
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "cache get failed", slog.String("key", ck), slog.String("err", err.Error()))
	}

	b, err = c.next.Get(ctx, partition, key)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, ck, b, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", slog.String("key", ck), slog.String("err", err.Error()))
		return b, nil
	}

	// A delete that ran between the read and the Set has already cleared
	// the entry, so the fill must be undone once the object is gone.
	if ok, err := c.next.Exists(ctx, partition, key); err == nil && !ok {
		if err := c.rdb.Del(ctx, ck).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache delete failed", slog.String("key", ck), slog.String("err", err.Error()))
		}
		return nil, usecase.ErrNotFound
	}
	return b, nil
}

func (c *CachedStorage) Exists(ctx context.Context, partition, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, cacheKey(partition, key)).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	return c.next.Exists(ctx, partition, key)
}

func (c *CachedStorage) Delete(ctx context.Context, partition, key string) error {
	err := c.next.Delete(ctx, partition, key)
	ck := cacheKey(partition, key)
	if derr := c.rdb.Del(ctx, ck).Err(); derr != nil {
		c.logger.WarnContext(ctx, "cache delete failed", slog.String("key", ck), slog.String("err", derr.Error()))
	}
	return err
}

func (c *CachedStorage) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	if hc, ok := c.next.(usecase.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

func cacheKey(partition, key string) string {
	return cacheKeyPrefix + partition + "/" + key
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PublicProductsKey prefixes the serialized public catalog. Each generation
// is stored under its own key.
const PublicProductsKey = "catalog:products:public"

// GenerationKey counts catalog invalidations.
const GenerationKey = "catalog:products:generation"

// Generation identifies the catalog state a cached listing was read from.
// A negative generation is unknown and is never stored.
type Generation int64

// ProductCache caches the public catalog listing. Implementations never fail
// the caller: errors are logged and treated as a miss.
//
// A miss reports the current generation. SetPublicProducts stores under that
// generation, so a listing read before an invalidation is never served after it.
type ProductCache interface {
	GetPublicProducts(ctx context.Context) ([]*domain.Product, Generation, bool)
	SetPublicProducts(ctx context.Context, gen Generation, products []*domain.Product)
	InvalidatePublicProducts(ctx context.Context)
}

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisProductCache creates a ProductCache backed by Redis
func NewRedisProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) ProductCache {
	return &redisProductCache{client: client, ttl: ttl, logger: logger}
}

// EntryKey is where the listing for gen lives.
func EntryKey(gen Generation) string {
	return fmt.Sprintf("%s:%d", PublicProductsKey, gen)
}

func (c *redisProductCache) generation(ctx context.Context) (Generation, error) {
	n, err := c.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	return Generation(n), nil
}

func (c *redisProductCache) GetPublicProducts(ctx context.Context) ([]*domain.Product, Generation, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("Failed to read catalog cache generation", zap.Error(err))
		return nil, -1, false
	}

	raw, err := c.client.Get(ctx, EntryKey(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read catalog cache", zap.Error(err))
			return nil, -1, false
		}
		return nil, gen, false
	}

	var products []*domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		c.logger.Warn("Discarding unreadable catalog cache entry", zap.Error(err))
		if err := c.client.Del(ctx, EntryKey(gen)).Err(); err != nil {
			c.logger.Warn("Failed to drop catalog cache entry", zap.Error(err))
		}
		return nil, gen, false
	}

	return products, gen, true
}

func (c *redisProductCache) SetPublicProducts(ctx context.Context, gen Generation, products []*domain.Product) {
	if gen < 0 {
		return
	}

	raw, err := json.Marshal(products)
	if err != nil {
		c.logger.Warn("Failed to encode catalog cache entry", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, EntryKey(gen), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write catalog cache", zap.Error(err))
	}
}

// InvalidatePublicProducts moves to a new generation. Entries of older
// generations are left to expire.
func (c *redisProductCache) InvalidatePublicProducts(ctx context.Context) {
	if err := c.client.Incr(ctx, GenerationKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}

type noopProductCache struct{}

// NewNoopProductCache returns a ProductCache that never hits
func NewNoopProductCache() ProductCache {
	return noopProductCache{}
}

func (noopProductCache) GetPublicProducts(context.Context) ([]*domain.Product, Generation, bool) {
	return nil, -1, false
}

func (noopProductCache) SetPublicProducts(context.Context, Generation, []*domain.Product) {}

func (noopProductCache) InvalidatePublicProducts(context.Context) {}

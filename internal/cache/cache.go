// Package cache provides the catalog read-through cache: Redis when
// REDIS_ADDR is configured, an in-process TTL map otherwise.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/zuritech/duka-api/internal/models"
)

// ProductCache caches catalog entries by id. Get returns ok=false on a miss.
type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, bool)
	Set(ctx context.Context, p *models.Product)
	Invalidate(ctx context.Context, id string)
}

const productTTL = 5 * time.Minute

// memoryCache is the in-process fallback.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string]cachedProduct
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

// NewMemoryCache returns an in-process TTL cache.
func NewMemoryCache() ProductCache {
	return &memoryCache{items: make(map[string]cachedProduct)}
}

func (c *memoryCache) Get(_ context.Context, id string) (*models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.items[id]
	if !ok || time.Now().After(cached.expires) {
		return nil, false
	}
	p := cached.product
	return &p, true
}

func (c *memoryCache) Set(_ context.Context, p *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = cachedProduct{product: *p, expires: time.Now().Add(productTTL)}
}

func (c *memoryCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// redisCache stores products as JSON under a keyspace prefix.
type redisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(addr string) (ProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Printf("[CACHE] Connected to Redis at %s", addr)

	return &redisCache{client: client}, nil
}

func productKey(id string) string {
	return "product:" + id
}

func (c *redisCache) Get(ctx context.Context, id string) (*models.Product, bool) {
	payload, err := c.client.Get(ctx, productKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[CACHE] redis get failed: %v", err)
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		log.Printf("[CACHE] failed to decode cached product %s: %v", id, err)
		return nil, false
	}
	return &p, true
}

func (c *redisCache) Set(ctx context.Context, p *models.Product) {
	payload, err := json.Marshal(p)
	if err != nil {
		log.Printf("[CACHE] failed to encode product %s: %v", p.ID, err)
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), payload, productTTL).Err(); err != nil {
		log.Printf("[CACHE] redis set failed: %v", err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		log.Printf("[CACHE] redis del failed: %v", err)
	}
}

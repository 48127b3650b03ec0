// Package rowcache retains parsed upload rows between preview and execute
package rowcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/clover/pkg/tabular"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores parsed documents keyed by job under a bounded TTL. Rows are
// released once a job executes or the TTL lapses; an expired entry reads
// back as a nil document.
type Cache struct {
	rdb    *redis.Client
	logger ectologger.Logger
	ttl    time.Duration
}

// NewCache connects to Redis and returns a row cache
func NewCache(cfg Config, logger ectologger.Logger) (*Cache, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &Cache{
		rdb:    rdb,
		logger: logger,
		ttl:    cfg.TTL,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Put stores a parsed document for a job
func (c *Cache) Put(ctx context.Context, tenantID, jobID string, doc *tabular.Document) error {
	ctx, span := tracing.StartSpan(ctx, "rowcache.Cache.Put")
	defer span.End()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode rows for job %s: %w", jobID, err)
	}

	if err := c.rdb.Set(ctx, cacheKey(tenantID, jobID), data, c.ttl).Err(); err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to cache parsed rows")
		return err
	}
	return nil
}

// Get retrieves the parsed document for a job, or nil when the entry has
// expired or never existed
func (c *Cache) Get(ctx context.Context, tenantID, jobID string) (*tabular.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "rowcache.Cache.Get")
	defer span.End()

	data, err := c.rdb.Get(ctx, cacheKey(tenantID, jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.WithContext(ctx).WithError(err).Error("Failed to read cached rows")
		return nil, err
	}

	var doc tabular.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode cached rows for job %s: %w", jobID, err)
	}
	return &doc, nil
}

// Delete releases the cached rows for a job
func (c *Cache) Delete(ctx context.Context, tenantID, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "rowcache.Cache.Delete")
	defer span.End()

	return c.rdb.Del(ctx, cacheKey(tenantID, jobID)).Err()
}

func cacheKey(tenantID, jobID string) string {
	return fmt.Sprintf("clover:rows:%s:%s", tenantID, jobID)
}

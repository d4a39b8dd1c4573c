package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Report cache keys. Report entries are stored under Scoped keys.
const (
	SummaryKey     = "reports:summary"
	AnalysisPrefix = "reports:analysis:"
	GenerationKey  = "reports:generation"
)

var client *redis.Client

// Init connects to Redis. On failure the package stays disabled and every
// helper below becomes a no-op, so the server keeps serving from Postgres.
func Init(addr, password string, db int) error {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return err
	}
	client = c
	return nil
}

// SetClient installs an existing client, nil disables caching
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client, nil when caching is disabled
func GetClient() *redis.Client {
	return client
}

// Close releases the connection
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// Generation returns the current report generation. ok is false when
// caching is disabled or the counter cannot be read.
func Generation(ctx context.Context) (gen int64, ok bool) {
	if client == nil {
		return 0, false
	}
	gen, err := client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Scoped ties a report key to a generation. Entries of older generations
// are never read again.
func Scoped(key string, gen int64) string {
	return key + "@" + strconv.FormatInt(gen, 10)
}

// InvalidateRecordCaches starts a new report generation and drops the
// entries of the previous one.
// Called when: CreateRecord, UpdateRecord, DeleteRecord
func InvalidateRecordCaches(ctx context.Context) {
	if client == nil {
		return
	}
	gen, err := client.Incr(ctx, GenerationKey).Result()
	if err != nil {
		return
	}
	prev := strconv.FormatInt(gen-1, 10)
	InvalidateKeys(ctx, Scoped(SummaryKey, gen-1))
	InvalidatePattern(ctx, AnalysisPrefix+"*@"+prev)
}

// IsHealthy returns true if Redis connection is working
func IsHealthy(ctx context.Context) bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// PreWarmKey fills key in the background so the next request after an
// invalidation is served from cache. The value is stored under the
// generation read before fetching, so a warm overtaken by a newer
// invalidation lands in a generation nobody reads.
func PreWarmKey(key string, fetcher func(ctx context.Context) ([]byte, error), ttl time.Duration) {
	if client == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		gen, ok := Generation(ctx)
		if !ok {
			return
		}
		data, err := fetcher(ctx)
		if err != nil {
			return
		}

		SetCached(ctx, Scoped(key, gen), data, ttl)
	}()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes. Every cached value lives under one of these so an entity
// change can drop a whole family of keys at once.
const (
	InventoryPrefix = "inventory:"
	CustomersPrefix = "customers:"
	SalesPrefix     = "sales:"
	ReportsPrefix   = "reports:"
	CatalogPrefix   = "catalog:"
)

// generationPrefix holds one counter per key family. It sits outside every
// family so pattern deletes never reset it.
const generationPrefix = "gen:"

var client *redis.Client

type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Init connects to Redis. On failure the client stays nil and every helper
// below becomes a no-op, so the service keeps working straight off the store.
func Init(opts Options) error {
	c := redis.NewClient(&redis.Options{
		Addr:     opts.Host + ":" + opts.Port,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// Use installs an existing client. Tests point it at a throwaway server.
func Use(c *redis.Client) {
	client = c
}

func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func Enabled() bool {
	return client != nil
}

// Key scopes name to the current generation of family. Callers build the
// key before reading the store: a fill that raced an invalidation lands
// on the old generation, which no reader asks for again. An empty key
// means Redis could not be read and the value should not be cached.
func Key(ctx context.Context, family, name string) string {
	if client == nil {
		return family + name
	}
	gen, err := client.Get(ctx, generationPrefix+family).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("[Redis] generation %s: %v", family, err)
		return ""
	}
	return fmt.Sprintf("%s%d:%s", family, gen, name)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil || key == "" {
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
	if client == nil || key == "" {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] set %s: %v", key, err)
	}
}

// GetJSON decodes a cached value into dst
func GetJSON(ctx context.Context, key string, dst any) bool {
	data, ok := GetCached(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if client == nil || key == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	SetCached(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Redis] scan %s: %v", pattern, err)
		return
	}
	if len(keys) > 0 {
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

// InvalidateFamily moves family to a new generation, then deletes the keys
// of the old ones
func InvalidateFamily(ctx context.Context, family string) {
	if client == nil {
		return
	}
	if err := client.Incr(ctx, generationPrefix+family).Err(); err != nil {
		log.Printf("[Redis] bump generation %s: %v", family, err)
	}
	InvalidatePattern(ctx, family+"*")
}

// InvalidateInventoryCaches runs after checkout, transfer and item edits
func InvalidateInventoryCaches(ctx context.Context) {
	InvalidateFamily(ctx, InventoryPrefix)
}

// InvalidateCustomerCaches runs after checkout, import and customer edits
func InvalidateCustomerCaches(ctx context.Context) {
	InvalidateFamily(ctx, CustomersPrefix)
}

// InvalidateSalesCaches also drops reports: every sale feeds daily stats
func InvalidateSalesCaches(ctx context.Context) {
	InvalidateFamily(ctx, SalesPrefix)
	InvalidateFamily(ctx, ReportsPrefix)
}

func InvalidateCatalogCaches(ctx context.Context) {
	InvalidateFamily(ctx, CatalogPrefix)
}

// PreWarmCallback is a function that populates a cache key
type PreWarmCallback func(ctx context.Context) ([]byte, error)

type preWarmKey struct {
	family, name string
}

var preWarmCallbacks = make(map[preWarmKey]PreWarmCallback)

// RegisterPreWarm registers a callback to pre-warm a cache key on startup
func RegisterPreWarm(family, name string, callback PreWarmCallback) {
	preWarmCallbacks[preWarmKey{family, name}] = callback
}

// PreWarmCache fills registered keys that are not cached yet
func PreWarmCache() {
	if client == nil {
		return
	}
	ctx := context.Background()
	for k, callback := range preWarmCallbacks {
		key := Key(ctx, k.family, k.name)
		if key == "" {
			continue
		}
		// another instance may have done it
		if _, ok := GetCached(ctx, key); ok {
			continue
		}
		data, err := callback(ctx)
		if err != nil {
			continue
		}
		SetCached(ctx, key, data, TTLFor(key))
	}
}

// TTLFor picks a lifetime by key family
func TTLFor(key string) time.Duration {
	switch {
	case hasPrefix(key, CatalogPrefix):
		return time.Hour
	case hasPrefix(key, ReportsPrefix):
		return 15 * time.Minute
	default:
		return 5 * time.Minute
	}
}

func hasPrefix(s, p string) bool {
	return len(s) >= len(p) && s[:len(p)] == p
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

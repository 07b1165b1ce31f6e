package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskboard/internal/metrics"
)

// Coordinator applies the cache-consistency rules on top of a Store. Reads
// try the cache and fall back to the authoritative loader; writes evict the
// touched entity key, set a fresh projection and drop every collection page
// that could contain the mutated entity. The coordinator is best-effort
// throughout: a failing cache degrades to loader calls, never to errors.
type Coordinator struct {
	store Store
	log   zerolog.Logger
}

// NewCoordinator builds a coordinator over the given cache store.
func NewCoordinator(store Store, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// resource derives the metrics label from the key family ("user", "tasks", ...).
func resource(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// ReadThrough tries key first and unmarshals a hit into dest. On miss it runs
// load, populates the key on success and unmarshals the loaded value into
// dest. Loader errors propagate unchanged and are never cached, so a miss for
// an id that is created concurrently is not masked.
func (c *Coordinator) ReadThrough(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() (interface{}, error)) error {
	if data, _ := c.store.Get(ctx, key); data != nil {
		if err := json.Unmarshal(data, dest); err == nil {
			metrics.CacheHitsTotal.WithLabelValues(resource(key)).Inc()
			return nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		_ = c.store.Delete(ctx, key)
	}
	metrics.CacheMissesTotal.WithLabelValues(resource(key)).Inc()

	loaded, err := load()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(loaded)
	if err != nil {
		return err
	}
	_ = c.store.Set(ctx, key, payload, ttl)
	return json.Unmarshal(payload, dest)
}

// WriteThrough runs the write-path rules after a committed store mutation:
// evict the entity key, set the fresh projection, then bulk-drop the
// collection prefixes that could contain the entity.
func (c *Coordinator) WriteThrough(ctx context.Context, key string, value interface{}, ttl time.Duration, collectionPrefixes ...string) {
	_ = c.store.Delete(ctx, key)
	if payload, err := json.Marshal(value); err == nil {
		_ = c.store.Set(ctx, key, payload, ttl)
	} else {
		c.log.Warn().Err(err).Str("key", key).Msg("cache marshal failed")
	}
	c.EvictCollections(ctx, collectionPrefixes...)
}

// Put sets a single key without touching collections.
func (c *Coordinator) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if payload, err := json.Marshal(value); err == nil {
		_ = c.store.Set(ctx, key, payload, ttl)
	} else {
		c.log.Warn().Err(err).Str("key", key).Msg("cache marshal failed")
	}
}

// Lookup returns whether key is present and unmarshals it into dest on a hit.
// Advisory only: callers must never treat a hit as authoritative for
// security-relevant decisions.
func (c *Coordinator) Lookup(ctx context.Context, key string, dest interface{}) bool {
	data, _ := c.store.Get(ctx, key)
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		_ = c.store.Delete(ctx, key)
		return false
	}
	return true
}

// Evict removes the given entity keys.
func (c *Coordinator) Evict(ctx context.Context, keys ...string) {
	for _, key := range keys {
		_ = c.store.Delete(ctx, key)
	}
}

// EvictCollections bulk-drops every page under the given prefixes. Coarse:
// all cached listings for the resource go, not only the affected pages.
func (c *Coordinator) EvictCollections(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		if n, _ := c.store.DeleteByPrefix(ctx, prefix); n > 0 {
			c.log.Debug().Str("prefix", prefix).Int("keys", n).Msg("collection cache invalidated")
		}
	}
}

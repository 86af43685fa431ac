// Package cache deduplicates and persists provider fetches.
//
// Every cacheable request is named by a Key. GetOrFetch guarantees that at
// most one fetch per key runs at a time: concurrent callers share the
// in-flight result, later callers read the stored entry. Failed fetches are
// delivered to every waiter and never stored.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Digital-Shane/title-scout/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// FetchFunc produces the payload for a missing key.
type FetchFunc func(ctx context.Context) (Payload, error)

// Cache is a two-tier cache: process memory in front of an optional Store.
type Cache struct {
	mem   *gocache.Cache
	store Store
	group singleflight.Group
	log   logrus.FieldLogger
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for store failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock overrides the entry creation clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a cache over store. A nil store keeps entries in memory only.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		mem:   gocache.New(gocache.NoExpiration, 0),
		store: store,
		log:   logrus.StandardLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the entry for key, calling fetch at most once across
// concurrent callers when it is missing. A caller whose ctx ends stops
// waiting; the shared fetch continues for the remaining waiters.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (*Entry, error) {
	fp := key.Fingerprint()
	category := string(key.Category)

	if e, ok := c.fromMemory(fp); ok {
		metrics.CacheLookups.WithLabelValues(category, "memory").Inc()
		return e, nil
	}

	ch := c.group.DoChan(fp, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)

		// A previous flight may have completed between the memory check and
		// joining this one.
		if e, ok := c.fromMemory(fp); ok {
			metrics.CacheLookups.WithLabelValues(category, "memory").Inc()
			return e, nil
		}
		if c.store != nil {
			e, err := c.store.Get(flightCtx, fp)
			switch {
			case err == nil:
				metrics.CacheLookups.WithLabelValues(category, "store").Inc()
				c.mem.Set(fp, e, gocache.NoExpiration)
				return e, nil
			case !errors.Is(err, ErrMiss):
				c.log.WithError(err).WithField("key", key.String()).Warn("cache store read failed")
			}
		}

		metrics.CacheLookups.WithLabelValues(category, "miss").Inc()
		payload, err := fetch(flightCtx)
		if err != nil {
			metrics.CacheFetchErrors.WithLabelValues(category).Inc()
			return nil, err
		}

		e := newEntry(key, payload, c.now())
		if c.store != nil {
			if err := c.store.Put(flightCtx, fp, e); err != nil {
				c.log.WithError(err).WithField("key", key.String()).Warn("cache store write failed")
			}
		}
		c.mem.Set(fp, e, gocache.NoExpiration)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			metrics.CacheLookups.WithLabelValues(category, "shared").Inc()
		}
		return res.Val.(*Entry), nil
	}
}

// Peek returns a cached entry without fetching.
func (c *Cache) Peek(ctx context.Context, key Key) (*Entry, bool) {
	fp := key.Fingerprint()
	if e, ok := c.fromMemory(fp); ok {
		return e, true
	}
	if c.store == nil {
		return nil, false
	}
	e, err := c.store.Get(ctx, fp)
	if err != nil {
		return nil, false
	}
	c.mem.Set(fp, e, gocache.NoExpiration)
	return e, true
}

func (c *Cache) fromMemory(fp string) (*Entry, bool) {
	v, ok := c.mem.Get(fp)
	if !ok {
		return nil, false
	}
	e, ok := v.(*Entry)
	return e, ok
}

// Clear removes every entry in scope from both tiers. Memory mirrors the
// store, so the count is the larger of the two tiers' removals: an entry
// held in both counts once, one the store failed to keep still counts.
func (c *Cache) Clear(ctx context.Context, scope Scope) (int, error) {
	memRemoved := 0
	for fp, item := range c.mem.Items() {
		if e, ok := item.Object.(*Entry); ok && scope.Includes(e.Key.Category) {
			c.mem.Delete(fp)
			memRemoved++
		}
	}
	if c.store == nil {
		return memRemoved, nil
	}
	storeRemoved, err := c.store.Clear(ctx, scope)
	if err != nil {
		return memRemoved, err
	}
	return max(memRemoved, storeRemoved), nil
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int { return c.mem.ItemCount() }

// Close releases the store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// GetOrFetchJSON caches a decoded value as JSON under key.
func GetOrFetchJSON[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	e, err := c.GetOrFetch(ctx, key, func(ctx context.Context) (Payload, error) {
		v, err := fetch(ctx)
		if err != nil {
			return Payload{}, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return Payload{}, fmt.Errorf("encode %s: %w", key, err)
		}
		return Payload{Data: data, ContentType: "application/json"}, nil
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

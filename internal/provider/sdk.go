package provider

import (
	"context"

	"github.com/Digital-Shane/title-scout/internal/cache"
	"github.com/Digital-Shane/title-scout/internal/media"
)

// SDKCall describes one SDK request made on behalf of a provider.
type SDKCall struct {
	Provider  string
	Operation string
	Locale    media.Locale
	Resource  string
}

// Key returns the cache key of the call's decoded response.
func (c SDKCall) Key() cache.Key {
	return cache.Key{
		Category:  cache.CategoryRecords,
		Provider:  c.Provider,
		Operation: c.Operation,
		Locale:    c.Locale,
		Resource:  c.Resource,
	}
}

// Cached runs fn once per distinct call, sharing the decoded result through
// c. A nil cache calls fn directly. rl, when set, gates the uncached path.
func Cached[T any](ctx context.Context, c *cache.Cache, rl *RateLimiter, call SDKCall, fn func() (T, error)) (T, error) {
	run := func(ctx context.Context) (T, error) {
		if rl != nil {
			if err := rl.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
		}
		return Call(ctx, call.Provider, call.Operation, fn)
	}
	if c == nil {
		return run(ctx)
	}
	return cache.GetOrFetchJSON(ctx, c, call.Key(), run)
}

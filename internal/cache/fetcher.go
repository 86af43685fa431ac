package cache

import (
	"context"
	"net/http"

	"github.com/Digital-Shane/title-scout/internal/fetch"
)

// Fetcher routes document fetches through a Cache.
type Fetcher struct {
	cache *Cache
	next  fetch.Fetcher
}

// NewFetcher wraps next so each distinct request is fetched once.
func NewFetcher(c *Cache, next fetch.Fetcher) *Fetcher {
	return &Fetcher{cache: c, next: next}
}

// KeyFor derives the cache key of a request. Uncategorized requests are
// treated as documents.
func KeyFor(req fetch.Request) Key {
	category := Category(req.Category)
	if category == "" {
		category = CategoryDocuments
	}
	return Key{
		Category:  category,
		Provider:  req.Provider,
		Operation: req.Operation,
		Locale:    req.Locale,
		Resource:  req.URL,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	e, err := f.cache.GetOrFetch(ctx, KeyFor(req), func(ctx context.Context) (Payload, error) {
		resp, err := f.next.Fetch(ctx, req)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Data: resp.Body, ContentType: resp.ContentType, URL: resp.URL}, nil
	})
	if err != nil {
		return nil, err
	}
	url := e.URL
	if url == "" {
		url = req.URL
	}
	return &fetch.Response{
		URL:         url,
		StatusCode:  http.StatusOK,
		ContentType: e.ContentType,
		Body:        e.Data,
	}, nil
}

package cache

import "context"

// Store persists entries across process restarts. Implementations must be
// safe for concurrent use and return ErrMiss for missing or unreadable
// entries.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*Entry, error)
	Put(ctx context.Context, fingerprint string, e *Entry) error
	Clear(ctx context.Context, scope Scope) (int, error)
	Close() error
}

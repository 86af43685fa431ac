package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// StoreOptions selects a persistent backend.
type StoreOptions struct {
	Backend       string // file, sqlite, redis or memory
	Dir           string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// OpenStore opens the configured backend. The memory backend has no store
// and returns nil.
func OpenStore(ctx context.Context, o StoreOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "", "file":
		return NewFileStore(o.Dir)
	case "sqlite":
		path := o.SQLitePath
		if path == "" {
			path = filepath.Join(o.Dir, "cache.db")
		}
		return OpenSQLite(path)
	case "redis":
		if o.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache backend requires an address")
		}
		return DialRedis(ctx, o.RedisAddr, o.RedisPassword, o.RedisDB, o.RedisPrefix)
	case "memory":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", o.Backend)
}

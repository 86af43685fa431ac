package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis under <prefix><category>:<fingerprint>.
type RedisStore struct {
	c      *goredis.Client
	prefix string
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(c *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "title-scout:cache:"
	}
	return &RedisStore{c: c, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	c := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(c, prefix), nil
}

func (s *RedisStore) key(c Category, fingerprint string) string {
	return s.prefix + string(c) + ":" + fingerprint
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	for _, c := range Categories {
		data, err := s.c.Get(ctx, s.key(c, fingerprint)).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis cache get: %w", err)
		}
		var env fileEnvelope
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil ||
			env.Version != fileVersion || !env.Entry.Valid(fingerprint) {
			_ = s.c.Del(ctx, s.key(c, fingerprint)).Err()
			return nil, ErrMiss
		}
		return &env.Entry, nil
	}
	return nil, ErrMiss
}

func (s *RedisStore) Put(ctx context.Context, fingerprint string, e *Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fileEnvelope{Version: fileVersion, Entry: *e}); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.c.Set(ctx, s.key(e.Key.Category, fingerprint), buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("redis cache put: %w", err)
	}
	return nil
}

// Clear scans and deletes keys in scope.
func (s *RedisStore) Clear(ctx context.Context, scope Scope) (int, error) {
	removed := 0
	for _, c := range Categories {
		if !scope.Includes(c) {
			continue
		}
		var cursor uint64
		for {
			keys, next, err := s.c.Scan(ctx, cursor, s.prefix+string(c)+":*", 200).Result()
			if err != nil {
				return removed, fmt.Errorf("redis cache scan: %w", err)
			}
			if len(keys) > 0 {
				n, err := s.c.Del(ctx, keys...).Result()
				if err != nil {
					return removed, fmt.Errorf("redis cache clear: %w", err)
				}
				removed += int(n)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return removed, nil
}

func (s *RedisStore) Close() error { return s.c.Close() }

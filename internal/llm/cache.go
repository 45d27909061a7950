package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agenthands/archgraph/internal/logger"
)

// Store is the key/value backend of a CachedClient.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisStore struct {
	rdb *goredis.Client
}

func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CachedClient memoizes generator responses by prompt. Store errors are
// logged and treated as misses; generator errors are never cached.
type CachedClient struct {
	Next      LLMClient
	Store     Store
	Namespace string
	Prefix    string
	TTL       time.Duration
	Log       *logger.Logger
}

func NewCachedClient(next LLMClient, store Store, namespace, prefix string, ttl time.Duration, log *logger.Logger) *CachedClient {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedClient{
		Next:      next,
		Store:     store,
		Namespace: namespace,
		Prefix:    prefix,
		TTL:       ttl,
		Log:       log.With("service", "LLMCache"),
	}
}

func (c *CachedClient) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.Key(prompt)

	cached, ok, err := c.Store.Get(ctx, key)
	if err != nil {
		c.Log.Warn("Cache lookup failed", "key", key, "error", err)
	} else if ok {
		c.Log.Debug("Cache hit", "key", key)
		return cached, nil
	}

	resp, err := c.Next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := c.Store.Set(ctx, key, resp, c.TTL); err != nil {
		c.Log.Warn("Cache store failed", "key", key, "error", err)
	}
	return resp, nil
}

// Key derives the cache key for prompt within the client's namespace.
func (c *CachedClient) Key(prompt string) string {
	sum := sha256.Sum256([]byte(c.Namespace + "\x00" + prompt))
	return c.Prefix + hex.EncodeToString(sum[:])
}

package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vovakirdan/chatrooms/internal/store"
)

// DefaultPrefix namespaces identity keys inside a shared Redis database.
const DefaultPrefix = "chatrooms:identity:"

// RedisStore implements store.IdentityStore on top of Redis strings.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// New connects to the Redis server at addr and verifies the connection.
func New(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// GetIdentity retrieves the record stored under key.
func (s *RedisStore) GetIdentity(ctx context.Context, key string) ([]byte, error) {
	record, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return record, nil
}

// PutIdentity stores record under key without expiry.
func (s *RedisStore) PutIdentity(ctx context.Context, key string, record []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, record, 0).Err(); err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes the record stored under key.
func (s *RedisStore) DeleteIdentity(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ store.IdentityStore = (*RedisStore)(nil)

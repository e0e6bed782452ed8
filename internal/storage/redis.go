// internal/storage/redis.go
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"login-portal/internal/domain/auth"
)

const (
	CodeReadFailed   = "STORAGE_READ_FAILED"
	CodeWriteFailed  = "STORAGE_WRITE_FAILED"
	CodeDeleteFailed = "STORAGE_DELETE_FAILED"
)

// RedisStorage keeps each client namespace under "storage:<client>:<key>".
type RedisStorage struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStorage returns a redis backed provider. A zero ttl keeps keys
// until they are removed.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		redis: client,
		ttl:   ttl,
	}
}

func (s *RedisStorage) Namespace(clientID string) auth.KeyValueStore {
	return &redisNamespace{parent: s, id: clientID}
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

type redisNamespace struct {
	parent *RedisStorage
	id     string
}

func (n *redisNamespace) key(k string) string {
	return "storage:" + n.id + ":" + k
}

func (n *redisNamespace) GetItems(ctx context.Context, keys ...string) (map[string]string, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.key(k)
	}

	vals, err := n.parent.redis.MGet(ctx, full...).Result()
	if err != nil {
		return nil, oops.Code(CodeReadFailed).In("storage").With("client", n.id).Wrap(err)
	}

	out := make(map[string]string, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// SetItems writes all pairs inside MULTI/EXEC, in key order.
func (n *redisNamespace) SetItems(ctx context.Context, items map[string]string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, err := n.parent.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, n.key(k), items[k], n.parent.ttl)
		}
		return nil
	})
	if err != nil {
		return oops.Code(CodeWriteFailed).In("storage").With("client", n.id).Wrap(err)
	}
	return nil
}

func (n *redisNamespace) RemoveItems(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.key(k)
	}

	if err := n.parent.redis.Del(ctx, full...).Err(); err != nil {
		return oops.Code(CodeDeleteFailed).In("storage").With("client", n.id).Wrap(err)
	}
	return nil
}

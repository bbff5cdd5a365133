package tokenstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the token in redis so several client processes can share one
// session. Each operation is a single redis command.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store under "<prefix>:token". A zero ttl keeps the
// token until it is cleared.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("[NewRedisStore] redis client is required")
	}
	if prefix == "" {
		prefix = "fitness"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisStore) key() string {
	return s.prefix + ":" + StorageKey
}

func (s *RedisStore) Token(ctx context.Context) (string, bool, error) {
	token, err := s.rdb.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[RedisStore.Token] get")
	}
	return token, token != "", nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.rdb.Set(ctx, s.key(), token, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.SetToken] set")
	}
	return nil
}

func (s *RedisStore) ClearToken(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key()).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.ClearToken] del")
	}
	return nil
}

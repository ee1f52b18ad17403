// Package idem provides inbound message deduplication keyed by correlation
// id, so a redelivered command is handled at most once within the TTL.
package idem

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// PutNX records the key if unseen and reports whether it was new.
	PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisStore struct{ r *redis.Client }

func New(client *redis.Client) Store {
	return &redisStore{r: client}
}

func (s *redisStore) PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.r.SetNX(ctx, "idem:"+key, "1", ttl).Result()
}

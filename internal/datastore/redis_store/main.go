package redis_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

func dbKeyIdempotency(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

type idempotencyRecord struct {
	SessionID string    `msgpack:"session_id"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// IdempotencyStore keeps client request keys in redis as msgpack records.
type IdempotencyStore struct {
	cmd redis.Cmdable
}

func NewIdempotencyStore(cmd redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{cmd}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	b, err := s.cmd.Get(ctx, dbKeyIdempotency(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var v idempotencyRecord
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return "", err
	}
	return v.SessionID, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, sessionID string, ttl time.Duration) error {
	b, err := msgpack.Marshal(&idempotencyRecord{SessionID: sessionID, CreatedAt: time.Now()})
	if err != nil {
		return err
	}

	return s.cmd.SetNX(ctx, dbKeyIdempotency(key), b, ttl).Err()
}

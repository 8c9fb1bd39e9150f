package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cmaxbonds/internal/domain"
)

const resetKeyPrefix = "cmax:reset:"

// ResetRedisStore keeps reset sessions in redis; expiry is delegated to key TTLs
type ResetRedisStore struct {
	cli *redis.Client
	now func() time.Time
}

// NewResetRedisStore connects to the redis instance at url
func NewResetRedisStore(url string) (*ResetRedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &ResetRedisStore{cli: redis.NewClient(opts), now: time.Now}, nil
}

// Ping checks connectivity
func (s *ResetRedisStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

// Close releases the client
func (s *ResetRedisStore) Close() error {
	return s.cli.Close()
}

func (s *ResetRedisStore) Save(ctx context.Context, session *domain.ResetSession) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode reset session: %w", err)
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.cli.Set(ctx, resetKeyPrefix+session.ID, b, ttl).Err(); err != nil {
		return fmt.Errorf("save reset session: %w", err)
	}
	return nil
}

func (s *ResetRedisStore) Get(ctx context.Context, id string) (*domain.ResetSession, error) {
	b, err := s.cli.Get(ctx, resetKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reset session %s: %w", id, domain.ErrResetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load reset session: %w", err)
	}

	var session domain.ResetSession
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("decode reset session: %w", err)
	}
	return &session, nil
}

func (s *ResetRedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cli.Del(ctx, resetKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete reset session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: redis evicts expired keys itself
func (s *ResetRedisStore) PurgeExpired(_ context.Context) (int, error) {
	return 0, nil
}

// Package capture holds the pending free-text input of administrators editing
// runtime settings. Records live in SQL by default or in Redis with a TTL.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgard/relaybot/internal/database"
	apperrors "github.com/edgard/relaybot/internal/errors"
)

// Store reads and writes admin capture records. Get returns nil, nil when no
// capture is pending.
type Store interface {
	GetCapture(ctx context.Context, adminID int64) (*database.CaptureState, error)
	SetCapture(ctx context.Context, state *database.CaptureState) error
	ClearCapture(ctx context.Context, adminID int64) error
}

var _ Store = (database.Store)(nil)

// RedisStore keeps capture records as JSON under capture:<adminID>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a capture store expiring records after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewStoreError(fmt.Sprintf("failed to connect to redis at %s", addr), err)
	}
	return client, nil
}

func captureKey(adminID int64) string {
	return fmt.Sprintf("capture:%d", adminID)
}

func (s *RedisStore) GetCapture(ctx context.Context, adminID int64) (*database.CaptureState, error) {
	data, err := s.client.Get(ctx, captureKey(adminID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.NewStoreError("failed to get capture from redis", err)
	}

	var state database.CaptureState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, apperrors.NewStoreError("failed to unmarshal capture", err)
	}
	return &state, nil
}

func (s *RedisStore) SetCapture(ctx context.Context, state *database.CaptureState) error {
	if state == nil || state.AdminID == 0 || state.TargetKey == "" {
		return apperrors.NewValidationError("capture state requires admin id and target key", nil)
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStoreError("failed to marshal capture", err)
	}
	if err := s.client.Set(ctx, captureKey(state.AdminID), data, s.ttl).Err(); err != nil {
		return apperrors.NewStoreError("failed to save capture to redis", err)
	}
	return nil
}

func (s *RedisStore) ClearCapture(ctx context.Context, adminID int64) error {
	if err := s.client.Del(ctx, captureKey(adminID)).Err(); err != nil {
		return apperrors.NewStoreError("failed to delete capture from redis", err)
	}
	return nil
}

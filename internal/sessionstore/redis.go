package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pet-search-assistant/internal/models"
)

// RedisStore keeps each session as a JSON document under session:<id> with
// a sliding TTL refreshed on every write.
type RedisStore struct {
	config *Config
	client *redis.Client
}

func NewRedisStore(config *Config, client *redis.Client) *RedisStore {
	return &RedisStore{
		config: config,
		client: client,
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.SessionState, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionLoadFailed, err)
	}

	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionLoadFailed, err)
	}
	return &state, nil
}

func (s *RedisStore) AppendTurn(ctx context.Context, state *models.SessionState, turn models.Turn) error {
	state.AppendTurn(turn, s.config.MaxHistory)

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionSaveFailed, err)
	}

	if err := s.client.Set(ctx, sessionKey(state.ID), raw, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionSaveFailed, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionSaveFailed, err)
	}
	return nil
}

func sessionKey(id string) string {
	return "session:" + id
}

// Package sessionstore persists conversation state between turns. Two
// backends share one contract so the choice is a config switch: an in-memory
// store for single-instance deployments and tests, and Redis for anything
// that needs to survive restarts or scale out.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/models"
)

var (
	ErrSessionNotFound   = errors.New("SESSION_NOT_FOUND")
	ErrSessionLoadFailed = errors.New("SESSION_LOAD_FAILED")
	ErrSessionSaveFailed = errors.New("SESSION_SAVE_FAILED")
)

// Store is the session persistence contract.
//
// Get returns ErrSessionNotFound for unknown sessions; the caller creates
// the initial state. AppendTurn applies the turn to the given state and
// persists the whole session atomically. Callers must not run concurrent
// turns against the same session id.
type Store interface {
	Get(ctx context.Context, id string) (*models.SessionState, error)
	AppendTurn(ctx context.Context, state *models.SessionState, turn models.Turn) error
	Reset(ctx context.Context, id string) error
}

type Config struct {
	Backend    string
	TTL        time.Duration
	MaxHistory int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Backend:    cfg.Session.Backend,
		TTL:        config.GetDuration(cfg.Session.TTL),
		MaxHistory: cfg.Session.MaxHistory,
	}
}

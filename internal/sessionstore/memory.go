package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"pet-search-assistant/internal/models"
)

const stripeCount = 32

// MemoryStore keeps sessions in process memory. Locks are striped by session
// id so distinct sessions never contend; operations on one session
// serialize on its stripe.
type MemoryStore struct {
	config  *Config
	stripes [stripeCount]stripe
}

type stripe struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemoryStore(config *Config) *MemoryStore {
	s := &MemoryStore{config: config}
	for i := range s.stripes {
		s.stripes[i].sessions = make(map[string][]byte)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.SessionState, error) {
	st := s.stripeFor(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionLoadFailed, err)
	}
	return &state, nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, state *models.SessionState, turn models.Turn) error {
	state.AppendTurn(turn, s.config.MaxHistory)

	// Sessions are stored serialized so callers never share live pointers
	// with the store, matching the Redis backend's semantics.
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionSaveFailed, err)
	}

	st := s.stripeFor(state.ID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[state.ID] = raw
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, id string) error {
	st := s.stripeFor(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
	return nil
}

func (s *MemoryStore) stripeFor(id string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.stripes[h.Sum32()%stripeCount]
}

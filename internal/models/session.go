package models

import "time"

// Turn records one completed conversational exchange.
type Turn struct {
	ID        string      `json:"id"`
	Utterance string      `json:"utterance"`
	Intent    QueryIntent `json:"intent"`
	Results   ResultSet   `json:"results"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SessionState is everything the assistant remembers about one conversation.
// It is the unit of persistence for the session store; mutation happens only
// between load and save of a single turn.
type SessionState struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customerId,omitempty"`
	Intent      QueryIntent `json:"intent"`
	LastResults ResultSet   `json:"lastResults"`
	History     []Turn      `json:"history"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewSessionState returns a fresh session with an empty intent.
func NewSessionState(id string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		ID:        id,
		Intent:    NewQueryIntent(),
		History:   []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendTurn records a completed turn, carrying the resolved intent and the
// result set forward for the next turn. History is capped at maxHistory
// entries, oldest dropped first; maxHistory <= 0 means unbounded.
func (s *SessionState) AppendTurn(t Turn, maxHistory int) {
	s.Intent = t.Intent
	s.LastResults = t.Results
	s.History = append(s.History, t)
	if maxHistory > 0 && len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
	s.UpdatedAt = time.Now().UTC()
}

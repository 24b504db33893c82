package models

// TraceToken is one normalized token in the debug trace.
type TraceToken struct {
	Canonical string `json:"canonical"`
	Negated   bool   `json:"negated,omitempty"`
}

// DebugTrace exposes the pipeline's intermediate artifacts for one turn.
type DebugTrace struct {
	Tokens   []TraceToken  `json:"tokens,omitempty"`
	Partial  PartialIntent `json:"partial"`
	Resolved QueryIntent   `json:"resolved"`
}

// DegradedFlags reports which pipeline stages fell back to degraded
// behavior instead of failing the turn.
type DegradedFlags struct {
	ExtractionFailed bool `json:"extractionFailed,omitempty"`
	RetrievalFailed  bool `json:"retrievalFailed,omitempty"`
}

// Any reports whether the turn was degraded at all.
func (d DegradedFlags) Any() bool {
	return d.ExtractionFailed || d.RetrievalFailed
}

// TurnResult is the assistant's answer for one utterance.
type TurnResult struct {
	SessionID string        `json:"sessionId"`
	TurnID    string        `json:"turnId"`
	Intent    QueryIntent   `json:"intent"`
	Results   ResultSet     `json:"results"`
	Degraded  DegradedFlags `json:"degraded"`
	Trace     *DebugTrace   `json:"trace,omitempty"`
}

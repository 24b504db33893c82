// Package errors provides the standardized error taxonomy for the turn pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Extraction (text-understanding capability)
	ErrCodeExtractionUnavailable ErrorCode = "EXTRACTION_UNAVAILABLE"
	ErrCodeNLUTimeout            ErrorCode = "NLU_TIMEOUT"
	ErrCodeNLUInvalidPayload     ErrorCode = "NLU_INVALID_PAYLOAD"

	// Retrieval (vector-similarity service)
	ErrCodeRetrievalUnavailable ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrCodeSearchTimeout        ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeEmbeddingFailed      ErrorCode = "EMBEDDING_FAILED"

	// Context resolution
	ErrCodeInvalidMergeConflict ErrorCode = "INVALID_MERGE_CONFLICT"

	// Session state store
	ErrCodeSessionLoadFailed ErrorCode = "SESSION_LOAD_FAILED"
	ErrCodeSessionSaveFailed ErrorCode = "SESSION_SAVE_FAILED"
	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"

	// Profile bridge
	ErrCodeProfileReadFailure  ErrorCode = "PROFILE_READ_FAILURE"
	ErrCodeProfileWriteFailure ErrorCode = "PROFILE_WRITE_FAILURE"

	// API surface
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewExtractionUnavailableError creates a retryable NLU service error.
func NewExtractionUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionUnavailable,
		Message:   "Text-understanding service unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLUTimeoutError creates a retryable NLU timeout error.
func NewNLUTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNLUTimeout,
		Message:   "Text-understanding call timed out",
		Details:   "call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLUInvalidPayloadError creates a non-retryable payload validation error.
func NewNLUInvalidPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNLUInvalidPayload,
		Message:   "Text-understanding returned an unparsable structure",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalUnavailableError creates a retryable similarity-service error.
func NewRetrievalUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalUnavailable,
		Message:   "Vector-similarity service unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Similarity search timed out",
		Details:   "search call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingFailedError creates a retryable embedding-service error.
func NewEmbeddingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "Query embedding failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidMergeConflictError records a merge-policy gap. Resolution handles
// all known conflicts internally, so this surfaces only in logs.
func NewInvalidMergeConflictError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMergeConflict,
		Message:   "Intent merge reached an unhandled conflict",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionLoadFailedError creates a retryable session store read error.
func NewSessionLoadFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionLoadFailed,
		Message:   "Session state load failed",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionSaveFailedError creates a retryable session store write error.
func NewSessionSaveFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionSaveFailed,
		Message:   "Session state save failed",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable missing session error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileReadFailureError creates a retryable profile store read error.
func NewProfileReadFailureError(customerID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileReadFailure,
		Message:   "Customer profile read failed",
		Details:   fmt.Sprintf("customerId: %s, error: %s", customerID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileWriteFailureError creates a retryable profile store write error.
func NewProfileWriteFailureError(customerID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileWriteFailure,
		Message:   "Customer profile write failed",
		Details:   fmt.Sprintf("customerId: %s, error: %s", customerID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NLU") || strings.Contains(codeStr, "EXTRACTION"):
		return "NLU"
	case strings.Contains(codeStr, "RETRIEVAL") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "EMBEDDING"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "PROFILE"):
		return "PROFILE"
	case strings.Contains(codeStr, "MERGE"):
		return "RESOLVER"
	default:
		return "OTHER"
	}
}

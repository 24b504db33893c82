package errors

import (
	"net/http"
	"time"
)

// ErrorResponse is the JSON body returned for failed API requests.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	Timestamp string `json:"timestamp"`
}

// HTTPStatus maps an internal error code to the status returned by the API.
// Pipeline degradation (extraction/retrieval down) is reported in-band on a
// 200 response, so only store and request faults appear here.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeSessionLoadFailed, ErrCodeSessionSaveFailed:
		return http.StatusServiceUnavailable
	case ErrCodeExtractionUnavailable, ErrCodeNLUTimeout,
		ErrCodeRetrievalUnavailable, ErrCodeSearchTimeout, ErrCodeEmbeddingFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts any error into an ErrorResponse plus HTTP status.
func ToResponse(err error) (int, *ErrorResponse) {
	stdErr, ok := err.(*StandardError)
	if !ok {
		stdErr = &StandardError{
			Code:      "INTERNAL_ERROR",
			Message:   "Unexpected error",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	return HTTPStatus(stdErr.Code), &ErrorResponse{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Timestamp: stdErr.Timestamp.Format(time.RFC3339),
	}
}

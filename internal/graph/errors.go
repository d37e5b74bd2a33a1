// Package graph provides a minimal HTTP client for the Microsoft Graph
// sendMail endpoint with error classification. Every request is attempted
// exactly once — retry policy is deliberately absent from kindlepost, so a
// failed send is recorded and the batch moves on.
package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrUnauthorized) to check.
var (
	ErrBadRequest      = errors.New("graph: bad request")
	ErrUnauthorized    = errors.New("graph: unauthorized")
	ErrForbidden       = errors.New("graph: forbidden")
	ErrNotFound        = errors.New("graph: not found")
	ErrPayloadTooLarge = errors.New("graph: payload too large")
	ErrThrottled       = errors.New("graph: throttled")
	ErrServerError     = errors.New("graph: server error")
)

// GraphError wraps a sentinel error with the HTTP status code, request ID,
// and the raw API response body. The body is carried verbatim — no
// structured parsing of provider error bodies is attempted.
type GraphError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *GraphError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents an error response from the simulation backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Endpoint   string `json:"-"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// IsForbidden returns true if the error is a 403, which Django answers on a
// missing or stale CSRF token.
func IsForbidden(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusForbidden
}

// parseAPIError decodes the message field of a JSON error body. Non-JSON
// bodies (Django debug pages) leave Message empty.
func parseAPIError(endpoint string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Endpoint: endpoint}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Message = ""
	}
	apiErr.Message = strings.TrimSpace(apiErr.Message)
	return apiErr
}

// QueryError is an analytics query failure. Its text is what the user sees:
// the server's message when it sent one, else a generic line per query.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Err }

// queryFailure wraps err for the named query.
func queryFailure(query string, err error) error {
	msg := "failed to calculate " + query
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &QueryError{Query: query, Message: msg, Err: err}
}

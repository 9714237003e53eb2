package api

import (
	"errors"
	"fmt"
)

// NetworkMessage is shown whenever the API could not be reached or answered
// with something that is not JSON.
const NetworkMessage = "Network error. Please try again."

// NetworkError means the request never produced a usable response: the
// transport failed or the body could not be decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer. Message is the server-supplied "error"
// field and may be empty.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Message turns any client error into the single string shown to the user.
// Application failures use the server's message, or fallback when it sent
// none; everything else is a network error.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	return NetworkMessage
}

// IsUnauthorized reports whether the API rejected the session.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

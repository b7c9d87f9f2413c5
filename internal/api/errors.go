package api

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is against an *Error.
var (
	// ErrNetwork: the API could not be reached. Safe to retry.
	ErrNetwork = errors.New("network error")
	// ErrAuthentication: credentials or token rejected.
	ErrAuthentication = errors.New("authentication error")
	// ErrProtocol: 2xx response with a body we cannot use.
	ErrProtocol = errors.New("protocol error")
	// ErrRequest: the server (or local validation) rejected the request.
	ErrRequest = errors.New("request rejected")
)

const (
	msgNetwork         = "Network request failed. Please check your connection and try again."
	msgInvalidResponse = "Invalid response from server"
	msgInvalidFormat   = "Server returned an invalid response format. Please try again later."
	msgSessionExpired  = "Your session has expired. Please log in again."
	msgNoToken         = "No authentication token found"
)

// Error is returned by every Client method. Error() yields a message fit to
// show the user as is.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *Error) String() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// ValidationError reports a request rejected before it was sent.
func ValidationError(message string) *Error {
	return &Error{Kind: ErrRequest, Message: message}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

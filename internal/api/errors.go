package api

import (
	"errors"
	"fmt"
)

// ErrTimeout wraps request failures caused by the bounded wait elapsing.
var ErrTimeout = errors.New("api: request timed out")

// StatusError reports a non-2xx transport status.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s returned HTTP %d", e.Path, e.Code)
}

// ServerError reports a well-formed failure envelope (success=false).
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("api: server error: %s", e.Message)
}

// ParseError reports a malformed response body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("api: malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

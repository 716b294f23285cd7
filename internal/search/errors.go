package search

import (
	"errors"
	"fmt"
)

// Code classifies a failed search for the API layer
type Code string

const (
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeDeadlineExceeded  Code = "DEADLINE_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// ErrSourceUnavailable is wrapped by schedule store implementations when
// the underlying store cannot answer. It is surfaced as a failed search,
// never silently treated as "no route".
var ErrSourceUnavailable = errors.New("schedule source unavailable")

// Error is a classified search failure
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// invalidRequestf builds an InvalidRequest error
func invalidRequestf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the classification from an error, defaulting to internal
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, ErrSourceUnavailable) {
		return CodeSourceUnavailable
	}
	return CodeInternal
}

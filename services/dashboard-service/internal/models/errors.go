package models

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork         = errors.New("network error")
	ErrParse           = errors.New("parse error")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidRegion   = errors.New("invalid region")
)

// NetworkError is a transport failure or a non-2xx upstream response.
// StatusCode is zero when no response arrived.
type NetworkError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("network error: %s returned %d: %s", e.URL, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("network error: %s returned %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ParseError means the body arrived but was not the expected shape.
type ParseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse error: "
	if e.URL != "" {
		msg += e.URL + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

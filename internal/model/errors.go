package model

import (
	"fmt"
	"strings"
)

// Sources of a ParseError.
const (
	SourceInput    = "input"
	SourceResponse = "response"
)

// ParseError reports malformed JSON in the user input or the response, or a
// response field of the wrong type.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	b.WriteString(e.Source)
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShapeError reports input that parsed but lacks a `data` array.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Reason == "" {
		return "Invalid input format"
	}
	return "Invalid input format: " + e.Reason
}

// RequestSetupError reports a failure before the request was sent.
type RequestSetupError struct {
	Message string
	Err     error
}

func (e *RequestSetupError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *RequestSetupError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d, message: %s", e.Status, e.Body)
}

// NetworkError reports that no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

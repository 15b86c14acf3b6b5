package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork covers socket connect, read and write failures
	ErrNetwork = errors.New("network error")

	// ErrHTTP covers malformed status lines, header blocks and body framing
	ErrHTTP = errors.New("malformed HTTP response")

	// ErrInvalidJSON is returned when a body is present but is not JSON
	ErrInvalidJSON = errors.New("invalid JSON response from engine")
)

// Error is the single failure value returned for an engine interaction.
// Kind is one of the package sentinels (or a sentinel from a higher layer)
// and is matched with errors.Is.
type Error struct {
	Kind   error
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, ": [%d]", e.Status)
		if e.Detail != "" {
			b.WriteString(" ")
			b.WriteString(e.Detail)
		}
	} else if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func networkError(op string, err error) error {
	return &Error{Kind: ErrNetwork, Detail: op, Err: err}
}

func httpError(format string, args ...any) error {
	return &Error{Kind: ErrHTTP, Detail: fmt.Sprintf(format, args...)}
}

// Message extracts the optional "message" field of an engine error body
func Message(body []byte, fallback string) string {
	if body == nil {
		return fallback
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return fallback
	}
	return payload.Message
}

package engine

import (
	"errors"
	"net/http"

	"github.com/cuemby/contained/pkg/wire"
)

var (
	// ErrResponse is a non-success status carrying the engine's message
	ErrResponse = errors.New("error from engine")

	// ErrInvalidResponse is a success status with an unexpected body
	ErrInvalidResponse = errors.New("invalid response from engine")
)

// Error is the failure value for every engine call
type Error = wire.Error

// Transport-level kinds, re-exported for callers of this package
var (
	ErrNetwork     = wire.ErrNetwork
	ErrHTTP        = wire.ErrHTTP
	ErrInvalidJSON = wire.ErrInvalidJSON
)

// Fallback messages used when an error body carries no message
const (
	msgCreateFailed = "Container creation failed"
	msgStartFailed  = "Container start failed"
	msgAttachFailed = "Container attach failed"
	msgWaitFailed   = "Container wait failed"
	msgRemoveFailed = "Container removal failed"
)

// errorResponse builds an ErrResponse from a non-success response
func errorResponse(resp *wire.Response, fallback string) error {
	return &Error{Kind: ErrResponse, Status: resp.Status, Detail: wire.Message(resp.Body, fallback)}
}

func invalidResponse(status int, body []byte) error {
	return &Error{Kind: ErrInvalidResponse, Status: status, Detail: string(body)}
}

// IsNotFound reports whether err is an engine response with status 404
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && errors.Is(e.Kind, ErrResponse) && e.Status == http.StatusNotFound
}

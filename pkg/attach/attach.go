package attach

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/cuemby/contained/pkg/wire"
)

// Content types announced by the engine for a hijacked attach stream
const (
	ContentTypeRaw         = "application/vnd.docker.raw-stream"
	ContentTypeMultiplexed = "application/vnd.docker.multiplexed-stream"
)

var (
	// ErrRefused is returned when the engine answers the attach request
	// with anything but an informational status
	ErrRefused = errors.New("engine refused to attach")

	// ErrUnknownStream is returned when the stream content type is neither
	// raw nor multiplexed
	ErrUnknownStream = errors.New("unrecognized attach stream type")

	// ErrInvalidStream is returned for a multiplexed frame whose stream
	// selector is not stdin, stdout or stderr
	ErrInvalidStream = errors.New("invalid stream type in multiplexed frame")
)

// Mode is the framing of an attach stream
type Mode int

const (
	ModeRaw Mode = iota
	ModeMultiplexed
)

func (m Mode) String() string {
	if m == ModeMultiplexed {
		return "multiplexed"
	}
	return "raw"
}

// Classify maps the response content type to a stream mode
func Classify(contentType string) (Mode, error) {
	switch contentType {
	case ContentTypeRaw:
		return ModeRaw, nil
	case ContentTypeMultiplexed:
		return ModeMultiplexed, nil
	default:
		return 0, &wire.Error{Kind: ErrUnknownStream, Detail: fmt.Sprintf("content type %q", contentType), Err: wire.ErrHTTP}
	}
}

// Path returns the attach endpoint for a container with every stream enabled
func Path(containerID string) string {
	q := url.Values{}
	q.Set("logs", "true")
	q.Set("stream", "true")
	q.Set("stdin", "true")
	q.Set("stdout", "true")
	q.Set("stderr", "true")
	return "/containers/" + url.PathEscape(containerID) + "/attach?" + q.Encode()
}

// Open performs the attach handshake on a dedicated connection and classifies
// the resulting stream. No pumping starts until Session.Start is called.
func Open(ctx context.Context, t *wire.Transport, containerID string, fallback string) (*Session, error) {
	ex, err := t.Open(ctx, &wire.Request{
		Method: "POST",
		Path:   Path(containerID),
		Header: map[string]string{
			"Upgrade":    "tcp",
			"Connection": "Upgrade",
		},
	})
	if err != nil {
		return nil, err
	}

	if ex.Head.Status < 100 || ex.Head.Status >= 200 {
		resp, err := ex.Response()
		if err != nil {
			return nil, &wire.Error{Kind: ErrRefused, Status: ex.Head.Status, Detail: fallback, Err: err}
		}
		return nil, &wire.Error{Kind: ErrRefused, Status: resp.Status, Detail: wire.Message(resp.Body, fallback)}
	}

	mode, err := Classify(ex.Head.Get("Content-Type"))
	if err != nil {
		ex.Close()
		return nil, err
	}

	return NewSession(ex.Conn, ex.Reader.Stream(), mode), nil
}

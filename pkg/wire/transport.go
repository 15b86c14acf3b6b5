package wire

import (
	"context"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cuemby/contained/pkg/log"
)

const (
	// DefaultSocketPath is the Docker engine control socket
	DefaultSocketPath = "/var/run/docker.sock"
)

// SocketPathFromEnv returns the unix socket named by DOCKER_HOST, or the
// default path when the variable is unset or names another scheme
func SocketPathFromEnv() string {
	if host, ok := strings.CutPrefix(os.Getenv("DOCKER_HOST"), "unix://"); ok && host != "" {
		return host
	}
	return DefaultSocketPath
}

// Transport sends requests to the engine over its unix socket. Every call
// uses a fresh connection; nothing is pooled or shared.
type Transport struct {
	socketPath string
	dialer     net.Dialer
}

// NewTransport creates a transport for socketPath
func NewTransport(socketPath string) *Transport {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Transport{socketPath: socketPath}
}

// SocketPath returns the engine socket this transport dials
func (t *Transport) SocketPath() string {
	return t.socketPath
}

// Dial opens a new connection to the engine socket. The connection is
// closed when ctx is done.
func (t *Transport) Dial(ctx context.Context) (net.Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "unix", t.socketPath)
	if err != nil {
		return nil, networkError("connect to "+t.socketPath, err)
	}
	context.AfterFunc(ctx, func() { conn.Close() })
	return conn, nil
}

// Exchange is an in-flight request whose response head has arrived.
// The caller owns Conn until Response or Close is called.
type Exchange struct {
	Conn   net.Conn
	Head   *Head
	Reader *Reader
}

// Response resolves the body and closes the connection
func (e *Exchange) Response() (*Response, error) {
	defer e.Conn.Close()
	body, err := e.Reader.ReadBody(e.Head)
	if err != nil {
		return nil, err
	}
	return &Response{Head: *e.Head, Body: body}, nil
}

// Close releases the connection
func (e *Exchange) Close() error {
	return e.Conn.Close()
}

// Open dials a fresh connection, writes req and returns once the response
// head has been parsed. The body, or the hijacked stream, is left unread.
func (t *Transport) Open(ctx context.Context, req *Request) (*Exchange, error) {
	conn, err := t.Dial(ctx)
	if err != nil {
		return nil, err
	}

	if err := WriteRequest(conn, req); err != nil {
		conn.Close()
		return nil, err
	}

	r := NewReader(conn)
	head, err := r.ReadHead()
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger := log.WithComponent("wire")
	logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", head.Status).
		Str("content_type", head.Get("Content-Type")).
		Msg("engine response head")
	return &Exchange{Conn: conn, Head: head, Reader: r}, nil
}

// Send performs one request/response exchange on its own connection
func (t *Transport) Send(ctx context.Context, method, path string, body []byte) (*Response, error) {
	start := time.Now()

	ex, err := t.Open(ctx, &Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	resp, err := ex.Response()
	if err != nil {
		return nil, err
	}

	logger := log.WithComponent("wire")
	logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.Status).
		Dur("duration", time.Since(start)).
		Msg("engine request")
	return resp, nil
}

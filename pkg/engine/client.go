package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cuemby/contained/pkg/attach"
	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/metrics"
	"github.com/cuemby/contained/pkg/types"
	"github.com/cuemby/contained/pkg/wire"
)

// Client calls the container engine API over its unix socket. Each call is
// a single attempt on its own connection; nothing is retried.
type Client struct {
	transport *wire.Transport
}

// NewClient creates a client for the engine listening on socketPath
func NewClient(socketPath string) *Client {
	return &Client{transport: wire.NewTransport(socketPath)}
}

// SocketPath returns the engine socket the client talks to
func (c *Client) SocketPath() string {
	return c.transport.SocketPath()
}

// Create creates a container from spec and returns its id
func (c *Client) Create(ctx context.Context, spec *types.ContainerSpec) (string, error) {
	body, err := json.Marshal(NewCreateRequest(spec))
	if err != nil {
		return "", fmt.Errorf("failed to encode create request: %w", err)
	}

	var id string
	err = c.call(ctx, "create", http.MethodPost, "/containers/create", body, func(resp *wire.Response) error {
		if resp.Status != http.StatusCreated {
			return errorResponse(resp, msgCreateFailed)
		}
		var created createResponse
		if resp.Body == nil || json.Unmarshal(resp.Body, &created) != nil || created.ID == "" {
			return invalidResponse(resp.Status, resp.Body)
		}
		for _, w := range created.Warnings {
			logger := log.WithComponent("engine")
			logger.Warn().Str("warning", w).Msg("engine warning on create")
		}
		id = created.ID
		return nil
	})
	return id, err
}

// Start starts a created container
func (c *Client) Start(ctx context.Context, id string) error {
	return c.call(ctx, "start", http.MethodPost, containerPath(id, "/start", nil), nil, func(resp *wire.Response) error {
		if !resp.Success() {
			return errorResponse(resp, msgStartFailed)
		}
		return nil
	})
}

// Remove deletes a container. With force the engine kills it first.
func (c *Client) Remove(ctx context.Context, id string, force bool) error {
	var query url.Values
	if force {
		query = url.Values{"force": {"true"}}
	}
	return c.call(ctx, "remove", http.MethodDelete, containerPath(id, "", query), nil, func(resp *wire.Response) error {
		if !resp.Success() {
			return errorResponse(resp, msgRemoveFailed)
		}
		return nil
	})
}

// Attach performs the attach handshake on a dedicated connection. It must
// complete before Start, or the first output of the container can be lost.
func (c *Client) Attach(ctx context.Context, id string) (*attach.Session, error) {
	timer := metrics.NewTimer()
	session, err := attach.Open(ctx, c.transport, id, msgAttachFailed)
	c.observe("attach", timer, err)
	if err != nil {
		return nil, err
	}
	logger := log.WithContainerID(id)
	logger.Debug().Stringer("mode", session.Mode()).Msg("attached")
	return session, nil
}

// Wait blocks until the container's next exit and returns its exit code
func (c *Client) Wait(ctx context.Context, id string) (uint8, error) {
	w, err := c.WaitNextExit(ctx, id)
	if err != nil {
		return 0, err
	}
	return w.ExitCode()
}

// WaitNextExit registers a next-exit wait and returns once the engine has
// acknowledged it with the response head. The exit code follows as the body
// when the container exits.
func (c *Client) WaitNextExit(ctx context.Context, id string) (*Waiter, error) {
	timer := metrics.NewTimer()
	query := url.Values{"condition": {"next-exit"}}
	ex, err := c.transport.Open(ctx, &wire.Request{
		Method: http.MethodPost,
		Path:   containerPath(id, "/wait", query),
	})
	if err != nil {
		c.observe("wait", timer, err)
		return nil, err
	}
	return &Waiter{client: c, exchange: ex, timer: timer}, nil
}

// Waiter is a registered wait whose exit code has not arrived yet
type Waiter struct {
	client   *Client
	exchange *wire.Exchange
	timer    *metrics.Timer
}

// ExitCode blocks for the wait response and narrows the status to a byte
func (w *Waiter) ExitCode() (uint8, error) {
	code, err := w.exitCode()
	w.client.observe("wait", w.timer, err)
	return code, err
}

func (w *Waiter) exitCode() (uint8, error) {
	resp, err := w.exchange.Response()
	if err != nil {
		return 0, err
	}
	if !resp.Success() {
		return 0, errorResponse(resp, msgWaitFailed)
	}

	var waited waitResponse
	if resp.Body == nil || json.Unmarshal(resp.Body, &waited) != nil || waited.StatusCode == nil {
		return 0, invalidResponse(resp.Status, resp.Body)
	}
	if waited.Error != nil && waited.Error.Message != "" {
		logger := log.WithComponent("engine")
		logger.Warn().Str("error", waited.Error.Message).Msg("engine reported wait error")
	}
	code := *waited.StatusCode
	if code < 0 || code > 255 {
		return 0, invalidResponse(resp.Status, resp.Body)
	}
	return uint8(code), nil
}

// call sends one request and hands the response to handle, recording metrics
func (c *Client) call(ctx context.Context, op, method, path string, body []byte, handle func(*wire.Response) error) error {
	timer := metrics.NewTimer()
	resp, err := c.transport.Send(ctx, method, path, body)
	if err == nil {
		err = handle(resp)
	}
	c.observe(op, timer, err)
	return err
}

func (c *Client) observe(op string, timer *metrics.Timer, err error) {
	timer.ObserveDurationVec(metrics.EngineRequestDuration, op)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.EngineRequestsTotal.WithLabelValues(op, outcome).Inc()
}

func containerPath(id, suffix string, query url.Values) string {
	p := "/containers/" + url.PathEscape(id) + suffix
	if len(query) > 0 {
		p += "?" + query.Encode()
	}
	return p
}

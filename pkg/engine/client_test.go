package engine

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/contained/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine serves mux on a unix socket and returns a client for it
func newTestEngine(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "engine.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return NewClient(socket)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testSpec() *types.ContainerSpec {
	return &types.ContainerSpec{
		Image:       "empty",
		Entrypoint:  []string{"/usr/bin/ls", "-l"},
		NetworkMode: "none",
		Binds: []types.Bind{
			types.NewBind("/opt", true),
			types.NewBind("/data", false),
		},
		Tmpfs:        types.DefaultTmpfs,
		Env:          []string{"FOO=1"},
		User:         "1000:1000",
		ReadonlyRoot: true,
		WorkingDir:   "/data",
	}
}

// TestCreate tests the create request body and returned id
func TestCreate(t *testing.T) {
	received := make(chan map[string]any, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers/create", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		received <- body
		writeJSON(w, http.StatusCreated, map[string]any{"Id": "3f2a9c", "Warnings": []string{}})
	})
	c := newTestEngine(t, mux)

	id, err := c.Create(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c", id)

	body := <-received
	assert.Equal(t, "empty", body["Image"])
	assert.Equal(t, []any{"/usr/bin/ls", "-l"}, body["Entrypoint"])
	assert.Equal(t, []any{"FOO=1"}, body["Env"])
	assert.Equal(t, "1000:1000", body["User"])
	assert.Equal(t, "/data", body["WorkingDir"])
	assert.Equal(t, false, body["Tty"])
	assert.Equal(t, true, body["OpenStdin"])
	assert.Equal(t, true, body["StdinOnce"])
	assert.NotContains(t, body, "Cmd")

	host := body["HostConfig"].(map[string]any)
	assert.Equal(t, "none", host["NetworkMode"])
	assert.Equal(t, []any{"/opt:/opt:ro", "/data:/data:rw"}, host["Binds"])
	assert.Equal(t, true, host["ReadonlyRootfs"])
	assert.Equal(t, "rw,exec", host["Tmpfs"].(map[string]any)["/tmp"])
	assert.NotContains(t, host, "ConsoleSize")
}

// TestCreateErrors tests create failures by status and body
func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantKind   error
		wantDetail string
	}{
		{
			name:       "engine message",
			status:     http.StatusNotFound,
			body:       map[string]string{"message": "No such image: empty:latest"},
			wantKind:   ErrResponse,
			wantDetail: "No such image: empty:latest",
		},
		{
			name:       "no message falls back",
			status:     http.StatusInternalServerError,
			body:       map[string]string{},
			wantKind:   ErrResponse,
			wantDetail: "Container creation failed",
		},
		{
			name:     "2xx other than created",
			status:   http.StatusOK,
			body:     map[string]string{"Id": "abc"},
			wantKind: ErrResponse,
		},
		{
			name:     "missing id",
			status:   http.StatusCreated,
			body:     map[string]any{"Warnings": nil},
			wantKind: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /containers/create", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			c := newTestEngine(t, mux)

			_, err := c.Create(context.Background(), testSpec())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.Status)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, e.Detail)
			}
		})
	}
}

// TestCreateInteractive tests that a tty run sets the console size
func TestCreateInteractive(t *testing.T) {
	received := make(chan CreateRequest, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers/create", func(w http.ResponseWriter, r *http.Request) {
		var body CreateRequest
		json.NewDecoder(r.Body).Decode(&body)
		received <- body
		writeJSON(w, http.StatusCreated, map[string]string{"Id": "tty1"})
	})
	c := newTestEngine(t, mux)

	spec := testSpec()
	spec.Tty = &types.Tty{Height: 40, Width: 120}
	_, err := c.Create(context.Background(), spec)
	require.NoError(t, err)

	body := <-received
	assert.True(t, body.Tty)
	assert.Equal(t, []uint{40, 120}, body.HostConfig.ConsoleSize)
}

// TestCreateNetworkError tests create against a missing socket
func TestCreateNetworkError(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.Create(context.Background(), testSpec())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

// TestStart tests start status handling
func TestStart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "ok":
			w.WriteHeader(http.StatusNoContent)
		case "running":
			w.WriteHeader(http.StatusNotModified)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No such container: " + r.PathValue("id")})
		}
	})
	c := newTestEngine(t, mux)

	require.NoError(t, c.Start(context.Background(), "ok"))

	err := c.Start(context.Background(), "running")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResponse)
	assert.Contains(t, err.Error(), "Container start failed")

	err = c.Start(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "No such container: gone")
}

// TestWait tests exit code extraction from wait responses
func TestWait(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode uint8
		wantErr  error
	}{
		{name: "zero", body: `{"StatusCode":0}`, wantCode: 0},
		{name: "killed", body: `{"StatusCode":137,"Error":null}`, wantCode: 137},
		{name: "max", body: `{"StatusCode":255}`, wantCode: 255},
		{name: "out of range", body: `{"StatusCode":256}`, wantErr: ErrInvalidResponse},
		{name: "negative", body: `{"StatusCode":-1}`, wantErr: ErrInvalidResponse},
		{name: "missing status", body: `{"Error":null}`, wantErr: ErrInvalidResponse},
		{name: "wrong type", body: `{"StatusCode":"0"}`, wantErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /containers/{id}/wait", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "next-exit", r.URL.Query().Get("condition"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				io.WriteString(w, tt.body)
			})
			c := newTestEngine(t, mux)

			code, err := c.Wait(context.Background(), "abc")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

// TestWaitNextExitRegistersBeforeExit tests that the head arrives before the
// exit code, so a caller can start the container only after registration
func TestWaitNextExitRegistersBeforeExit(t *testing.T) {
	exited := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers/{id}/wait", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-exited
		io.WriteString(w, `{"StatusCode":3}`)
	})
	c := newTestEngine(t, mux)

	waiter, err := c.WaitNextExit(context.Background(), "abc")
	require.NoError(t, err)

	result := make(chan uint8, 1)
	go func() {
		code, err := waiter.ExitCode()
		assert.NoError(t, err)
		result <- code
	}()

	select {
	case <-result:
		t.Fatal("exit code resolved before the container exited")
	case <-time.After(50 * time.Millisecond):
	}

	close(exited)
	select {
	case code := <-result:
		assert.Equal(t, uint8(3), code)
	case <-time.After(5 * time.Second):
		t.Fatal("exit code never arrived")
	}
}

// TestWaitRefused tests a wait rejected by the engine
func TestWaitRefused(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers/{id}/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No such container: abc"})
	})
	c := newTestEngine(t, mux)

	_, err := c.Wait(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

// TestRemove tests remove with and without force
func TestRemove(t *testing.T) {
	forced := make(chan string, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /containers/{id}", func(w http.ResponseWriter, r *http.Request) {
		forced <- r.URL.Query().Get("force")
		if r.PathValue("id") == "gone" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No such container: gone"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestEngine(t, mux)

	require.NoError(t, c.Remove(context.Background(), "abc", false))
	assert.Equal(t, "", <-forced)

	err := c.Remove(context.Background(), "gone", true)
	require.Error(t, err)
	assert.Equal(t, "true", <-forced)
	assert.True(t, IsNotFound(err))
}

// TestIsNotFound tests 404 detection on engine errors
func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&Error{Kind: ErrResponse, Status: 404}))
	assert.False(t, IsNotFound(&Error{Kind: ErrResponse, Status: 409}))
	assert.False(t, IsNotFound(&Error{Kind: ErrInvalidResponse, Status: 404}))
	assert.False(t, IsNotFound(nil))
}

// TestContainerPath tests container id escaping in endpoint paths
func TestContainerPath(t *testing.T) {
	assert.Equal(t, "/containers/abc/start", containerPath("abc", "/start", nil))
	assert.Equal(t, "/containers/abc?force=true", containerPath("abc", "", map[string][]string{"force": {"true"}}))
}

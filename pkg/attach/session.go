package attach

import (
	"io"
	"sync"

	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/metrics"
)

// closeWriter is implemented by connections that support half-close
type closeWriter interface {
	CloseWrite() error
}

// Session is a live attach stream. It is owned by its two forwarding loops
// from Start until the stream ends; it is never reused.
type Session struct {
	conn   io.ReadWriteCloser
	stream io.Reader
	mode   Mode

	startOnce sync.Once
	done      chan error
}

// NewSession wraps a hijacked connection. Reads come from stream, which
// starts with any bytes that were buffered together with the handshake.
func NewSession(conn io.ReadWriteCloser, stream io.Reader, mode Mode) *Session {
	return &Session{
		conn:   conn,
		stream: stream,
		mode:   mode,
		done:   make(chan error, 1),
	}
}

// Mode returns the framing negotiated during the handshake
func (s *Session) Mode() Mode {
	return s.mode
}

// Start launches the output loop and the stdin loop. The output loop
// reports on Done when the engine ends the stream. The stdin loop is
// best-effort and is not joined: it may stay blocked reading local input.
func (s *Session) Start(stdin io.Reader, stdout, stderr io.Writer) {
	s.startOnce.Do(func() {
		go s.pumpOutput(stdout, stderr)
		if stdin != nil {
			go s.pumpInput(stdin)
		}
	})
}

// Done delivers the output loop's result exactly once
func (s *Session) Done() <-chan error {
	return s.done
}

// Close tears down the connection, ending both loops
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) pumpOutput(stdout, stderr io.Writer) {
	var err error
	if s.mode == ModeMultiplexed {
		err = Demux(s.stream, stdout, stderr)
	} else {
		err = copyRaw(s.stream, stdout)
	}
	s.done <- err
}

func (s *Session) pumpInput(stdin io.Reader) {
	logger := log.WithComponent("attach")

	n, err := io.Copy(s.conn, stdin)
	metrics.StreamBytesTotal.WithLabelValues("stdin").Add(float64(n))
	if err != nil {
		logger.Debug().Err(err).Msg("stdin forwarding stopped")
		return
	}

	// Signal end of input so the container sees EOF on its stdin
	if cw, ok := s.conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			logger.Debug().Err(err).Msg("half-close of attach stream failed")
		}
	}
}

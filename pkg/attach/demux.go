package attach

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cuemby/contained/pkg/metrics"
	"github.com/cuemby/contained/pkg/wire"
)

// Stream selectors in a multiplexed frame header
const (
	StreamStdin  byte = 0
	StreamStdout byte = 1
	StreamStderr byte = 2
)

const (
	frameHeaderSize = 8
	copyBufferSize  = 32 * 1024
)

type flusher interface {
	Flush() error
}

// writeFlush writes p and flushes w when it buffers
func writeFlush(w io.Writer, p []byte) error {
	if _, err := w.Write(p); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Demux reads multiplexed frames from src until a clean end of stream.
// Stdin echo and stdout frames go to stdout, stderr frames to stderr.
//
// Frame layout: [type, 0, 0, 0, size(4, big endian)] followed by size bytes.
func Demux(src io.Reader, stdout, stderr io.Writer) error {
	var header [frameHeaderSize]byte
	payload := make([]byte, copyBufferSize)

	for {
		if _, err := io.ReadFull(src, header[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return readError(err)
		}

		var dst io.Writer
		var direction string
		switch header[0] {
		case StreamStdin, StreamStdout:
			dst, direction = stdout, "stdout"
		case StreamStderr:
			dst, direction = stderr, "stderr"
		default:
			return &wire.Error{Kind: ErrInvalidStream, Detail: fmt.Sprintf("stream type %d", header[0])}
		}

		// Large frames are forwarded in buffer-sized pieces
		size := int64(binary.BigEndian.Uint32(header[4:]))
		for remaining := size; remaining > 0; {
			n := min(remaining, int64(len(payload)))
			if _, err := io.ReadFull(src, payload[:n]); err != nil {
				// A header promised this payload, so any end of stream is mid-frame
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return readError(err)
			}
			if err := writeFlush(dst, payload[:n]); err != nil {
				return fmt.Errorf("write %s: %w", direction, err)
			}
			remaining -= n
		}
		metrics.StreamBytesTotal.WithLabelValues(direction).Add(float64(size))
	}
}

// copyRaw forwards an unframed stream to stdout until end of stream
func copyRaw(src io.Reader, stdout io.Writer) error {
	buf := make([]byte, copyBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := writeFlush(stdout, buf[:n]); werr != nil {
				return fmt.Errorf("write stdout: %w", werr)
			}
			metrics.StreamBytesTotal.WithLabelValues("stdout").Add(float64(n))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return readError(err)
		}
	}
}

func readError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &wire.Error{Kind: wire.ErrHTTP, Detail: "attach stream ended mid-frame"}
	}
	return &wire.Error{Kind: wire.ErrNetwork, Detail: "read attach stream", Err: err}
}

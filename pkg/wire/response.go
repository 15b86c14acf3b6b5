package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	// BufferSize bounds the header block and any chunk-size line
	BufferSize = 16 * 1024

	// maxBodySize bounds a Content-Length or chunk size before allocation
	maxBodySize = 32 << 20
)

var (
	crlf     = []byte("\r\n")
	crlfcrlf = []byte("\r\n\r\n")
)

// Head is a parsed status line and header block
type Head struct {
	Proto  string
	Status int
	Reason string
	Header map[string]string
}

// Get returns a header value, matching the name case-insensitively
func (h *Head) Get(name string) string {
	return h.Header[strings.ToLower(name)]
}

// Response is a complete engine response. Body is nil when the engine sent none.
type Response struct {
	Head
	Body json.RawMessage
}

// Success reports a 2xx status
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Reader parses responses from a fixed-size buffer. Bytes are only ever
// appended to the buffer; the region already scanned is never moved.
type Reader struct {
	src io.Reader
	buf []byte
	n   int // bytes held in buf
	pos int // bytes consumed by the parser
}

// NewReader creates a response reader over src
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, buf: make([]byte, BufferSize)}
}

// Buffered returns bytes read from the source but not consumed by the parser
func (r *Reader) Buffered() []byte {
	return r.buf[r.pos:r.n]
}

// Stream returns the unconsumed bytes followed by the rest of the source.
// Used after a hijack, when everything past the head belongs to the stream.
func (r *Reader) Stream() io.Reader {
	rest := bytes.Clone(r.Buffered())
	r.pos = r.n
	return io.MultiReader(bytes.NewReader(rest), r.src)
}

// fill appends at least one byte to the buffer
func (r *Reader) fill() error {
	if r.n == len(r.buf) {
		return httpError("response head exceeds %d bytes", len(r.buf))
	}
	for {
		m, err := r.src.Read(r.buf[r.n:])
		r.n += m
		if m > 0 {
			return nil
		}
		if err == io.EOF {
			return httpError("connection closed mid-response")
		}
		if err != nil {
			return networkError("read response", err)
		}
	}
}

// ReadHead reads until a complete header block is buffered and parses it
func (r *Reader) ReadHead() (*Head, error) {
	scanned := r.pos
	for {
		if i := bytes.Index(r.buf[scanned:r.n], crlfcrlf); i >= 0 {
			end := scanned + i
			head, err := parseHead(r.buf[r.pos:end])
			if err != nil {
				return nil, err
			}
			r.pos = end + len(crlfcrlf)
			return head, nil
		}
		// A terminator may straddle the next read
		if r.n-len(crlfcrlf)+1 > scanned {
			scanned = r.n - len(crlfcrlf) + 1
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// ReadResponse reads a head and resolves its body
func (r *Reader) ReadResponse() (*Response, error) {
	head, err := r.ReadHead()
	if err != nil {
		return nil, err
	}

	body, err := r.ReadBody(head)
	if err != nil {
		return nil, err
	}
	return &Response{Head: *head, Body: body}, nil
}

// ReadBody resolves the body announced by head. A body must be JSON; nil is
// returned when the engine sent none.
func (r *Reader) ReadBody(head *Head) (json.RawMessage, error) {
	body, err := r.readBody(head)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !isJSON(head.Get("Content-Type")) || !json.Valid(body) {
		return nil, &Error{Kind: ErrInvalidJSON, Status: head.Status, Detail: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (r *Reader) readBody(head *Head) ([]byte, error) {
	if strings.Contains(strings.ToLower(head.Get("Transfer-Encoding")), "chunked") {
		return r.readChunk()
	}

	cl := head.Get("Content-Length")
	if cl == "" {
		return nil, nil
	}
	length, err := strconv.ParseUint(cl, 10, 63)
	if err != nil {
		return nil, &Error{Kind: ErrHTTP, Detail: "invalid Content-Length " + strconv.Quote(cl), Err: err}
	}
	return r.readN(int64(length))
}

// readChunk decodes a single chunk. The engine emits each JSON document in
// one chunk; a second non-empty chunk already in the buffer is an error.
func (r *Reader) readChunk() ([]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	size, err := parseChunkSize(line)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	body, err := r.readN(size)
	if err != nil {
		return nil, err
	}

	rest := bytes.TrimPrefix(r.Buffered(), crlf)
	if i := bytes.Index(rest, crlf); i >= 0 {
		next, err := parseChunkSize(rest[:i])
		if err != nil {
			return nil, err
		}
		if next != 0 {
			return nil, httpError("multiple chunks not supported")
		}
	}
	return body, nil
}

// readLine returns the next CRLF-terminated line without its terminator
func (r *Reader) readLine() ([]byte, error) {
	scanned := r.pos
	for {
		if i := bytes.Index(r.buf[scanned:r.n], crlf); i >= 0 {
			line := r.buf[r.pos : scanned+i]
			r.pos = scanned + i + len(crlf)
			return line, nil
		}
		if r.n > scanned {
			scanned = r.n - 1
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// readN returns exactly n bytes, draining the buffer before the source
func (r *Reader) readN(n int64) ([]byte, error) {
	if n > maxBodySize {
		return nil, httpError("body of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	c := copy(body, r.Buffered())
	r.pos += c
	if int64(c) == n {
		return body, nil
	}
	if _, err := io.ReadFull(r.src, body[c:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, httpError("body shorter than declared %d bytes", n)
		}
		return nil, networkError("read body", err)
	}
	return body, nil
}

func parseHead(block []byte) (*Head, error) {
	lines := strings.Split(string(block), "\r\n")

	proto, rest, ok := strings.Cut(lines[0], " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, httpError("malformed status line %q", lines[0])
	}
	code, reason, _ := strings.Cut(rest, " ")
	status, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 {
		return nil, httpError("malformed status code %q", code)
	}

	header := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, httpError("malformed header line %q", line)
		}
		header[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	return &Head{Proto: proto, Status: status, Reason: reason, Header: header}, nil
}

func parseChunkSize(line []byte) (int64, error) {
	s, _, _ := strings.Cut(string(line), ";")
	size, err := strconv.ParseUint(strings.TrimSpace(s), 16, 63)
	if err != nil {
		return 0, &Error{Kind: ErrHTTP, Detail: "invalid chunk size " + strconv.Quote(string(line)), Err: err}
	}
	return int64(size), nil
}

func isJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), contentTypeJSON)
}

package wire

import (
	"bufio"
	"io"
	"sort"
	"strconv"
)

const (
	// Host header value; the engine ignores it on a unix socket
	requestHost = "localhost"

	contentTypeJSON = "application/json"
)

// Request is a single HTTP/1.1 request to the engine
type Request struct {
	Method string
	Path   string
	Header map[string]string
	Body   []byte
}

// WriteRequest serializes req onto w and flushes it
func WriteRequest(w io.Writer, req *Request) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(req.Method + " " + req.Path + " HTTP/1.1\r\n")
	bw.WriteString("Host: " + requestHost + "\r\n")
	bw.WriteString("Accept: " + contentTypeJSON + "\r\n")

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bw.WriteString(k + ": " + req.Header[k] + "\r\n")
	}

	if req.Body != nil {
		bw.WriteString("Content-Type: " + contentTypeJSON + "\r\n")
		bw.WriteString("Content-Length: " + strconv.Itoa(len(req.Body)) + "\r\n")
	}
	bw.WriteString("\r\n")

	if req.Body != nil {
		bw.Write(req.Body)
	}

	if err := bw.Flush(); err != nil {
		return networkError("write request", err)
	}
	return nil
}

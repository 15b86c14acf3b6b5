/*
Package wire is a narrow HTTP/1.1 client for the container engine's unix socket.

It is deliberately not a general HTTP stack: one request per connection, no
keep-alive, no TLS, and only the framing the engine actually produces. Parsing
is an explicit small state machine over an append-only fixed buffer:

	Connecting -> HeadersBuffered -> BodyResolved

The header block is accumulated across as many socket reads as needed. The
body is then resolved by Content-Length, or by a single chunk when the
response uses chunked transfer-encoding. The engine writes each JSON document
in one chunk; a second non-empty chunk is reported as ErrHTTP rather than
being truncated silently.

Failures are *Error values whose Kind is one of ErrNetwork, ErrHTTP or
ErrInvalidJSON. Higher layers reuse Error with their own kinds.
*/
package wire

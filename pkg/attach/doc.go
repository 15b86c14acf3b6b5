/*
Package attach implements the engine's attach hijack and stream forwarding.

# Handshake

Open sends POST /containers/{id}/attach with Upgrade: tcp on a connection
of its own. The engine must answer with an informational status (101); any
other status means it refused to attach. The response Content-Type selects
the framing of everything that follows:

	application/vnd.docker.raw-stream          raw bytes (container has a TTY)
	application/vnd.docker.multiplexed-stream  framed stdout/stderr

Any other value is rejected before a forwarding loop is started.

# Multiplexed Frames

	[8]byte{TYPE, 0, 0, 0, SIZE1, SIZE2, SIZE3, SIZE4}[]byte{PAYLOAD}

TYPE 0 (stdin echo) and 1 (stdout) are written to local stdout, 2 to local
stderr; anything else is ErrInvalidStream. SIZE is big endian. A clean end of
stream between frames ends the session without error.

# Forwarding

Session.Start runs two goroutines:

	engine --(raw copy | Demux)--> stdout/stderr   reported on Done
	stdin  --(io.Copy)---------->  engine          half-closed at EOF, never joined
*/
package attach

/*
Package engine is the client for the container engine's REST API.

Each operation is one request on a fresh unix socket connection:

	Create        POST   /containers/create                  201 {"Id": ...}
	Start         POST   /containers/{id}/start              2xx
	Attach        POST   /containers/{id}/attach?...         101 + hijacked stream
	WaitNextExit  POST   /containers/{id}/wait?condition=next-exit
	Remove        DELETE /containers/{id}[?force=true]       2xx

# Waiting

WaitNextExit returns as soon as the response head arrives. The engine sends
the head once the waiter is registered, so a caller that starts the container
afterwards cannot miss an exit. Waiter.ExitCode then blocks for the body and
narrows StatusCode to 0..255.

# Errors

Every failure is an *Error whose Kind is one of ErrNetwork, ErrHTTP,
ErrInvalidJSON, ErrResponse or ErrInvalidResponse, usable with errors.Is.
ErrResponse carries the engine's "message" or a per-operation fallback such
as "Container creation failed".
*/
package engine

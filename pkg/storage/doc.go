/*
Package storage keeps a BoltDB ledger of containers that were created but not
yet removed.

A container is recorded right after the engine creates it and the record is
dropped once removal succeeds. Anything still in the ledger is therefore a
container a run left behind: a failed start, an interrupted wait, or a
refused removal. `contained leftovers list` shows them and
`contained leftovers prune` removes them.

# Layout

	<state dir>/contained.db
	  leftovers   container id -> JSON types.Leftover

The state directory defaults to $XDG_STATE_HOME/contained. The database is
opened per operation with a bounded lock wait, so runs in parallel do not
block each other for the lifetime of a container.
*/
package storage

/*
Package runner runs a ContainerSpec to completion and reports its exit code.

Three implementations share the Runner interface and are chosen by the CLI:

	DaemonRunner   engine API over the unix socket (create, attach, start, wait, remove)
	CommandRunner  podman or docker CLI: `<engine> run --rm -i ...`
	BwrapRunner    bubblewrap sandbox on the host, no engine

# Daemon Runs

DaemonRunner drives one container through its lifecycle:

	create -> [raw terminal] -> attach -> register wait -> start
	       -> exit code -> drain output -> remove -> [restore terminal]

Attach completes before start so no early output is lost. The wait is
registered with condition=next-exit before start, and its result reaches the
foreground over a channel that is written once and read once. After the exit
code arrives the output loop is given DrainTimeout to reach the end of the
stream, so all output is written before the run returns.

Each failure is wrapped with its stage ("container creation: ...",
"container start: ..."). A failure after creation leaves the container in
the engine for inspection and in the leftover ledger; Prune cleans up later.
*/
package runner

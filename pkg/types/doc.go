/*
Package types defines the data structures shared by every contained component.

A ContainerSpec is built once per invocation by pkg/spec and consumed by a
runner: the daemon runner serializes it into the engine's create request, the
command runners turn it into an argument vector for docker, podman or bwrap.

# Core Types

Container description:
  - ContainerSpec: image, entrypoint, user, environment, mounts, working directory
  - Bind: host path exposed inside the container, with ro/rw options
  - TmpfsMount: in-memory writable filesystem
  - Tty: terminal size, present only for fully interactive runs

Run outcome:
  - ExitResult: container id and its exit code (0-255)
  - Leftover: ledger record of a container not yet removed, with the Stage it reached

# Bind Format

Binds are passed to the engine as strings:

	hostPath:containerPath
	hostPath:containerPath:ro
	hostPath:containerPath:ro,z

An empty option set yields no trailing segment; Bind.String is the only
formatter used for the wire.

# Default Tmpfs Mounts

The root filesystem is mounted read-only, so the directories that programs
expect to write to are backed by tmpfs:

	/tmp, /var/tmp   rw,exec
	/run, /var/run   rw,noexec
*/
package types

/*
Package spec builds the ContainerSpec for one run from command-line inputs.

A host program runs in the default "empty" image with a read-only root. Its
directory and the usual system directories are bound read-only so that the
loader and shared libraries resolve as on the host:

	spec, err := spec.NewBuilder().
		WithProgram("ls", "-l").
		WithCurrentDir(false).
		WithEnv("FOO=1").
		Build()

Every host path placed in the container spec is canonicalized at build time; a path
that does not exist fails the build. The X11 socket directory is the only
bind that is silently skipped when absent.
*/
package spec

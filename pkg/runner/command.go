package runner

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/cuemby/contained/pkg/types"
)

// CommandRunner runs a spec through a container engine CLI such as podman
// or docker, as `<engine> run --rm ...`
type CommandRunner struct {
	execRunner
}

// NewCommandRunner locates the engine binary in PATH
func NewCommandRunner(engine string, streams IO) (*CommandRunner, error) {
	path, err := exec.LookPath(engine)
	if err != nil {
		return nil, fmt.Errorf("%s CLI not found: %w", engine, err)
	}
	return &CommandRunner{execRunner{name: engine, path: path, io: streams}}, nil
}

// Name returns the engine binary name
func (r *CommandRunner) Name() string {
	return r.name
}

// Run executes the container in the foreground and returns the CLI's exit
// code, which is the container's
func (r *CommandRunner) Run(ctx context.Context, spec *types.ContainerSpec) (types.ExitResult, error) {
	return r.run(ctx, RunArgs(spec))
}

// RunArgs builds the `run` argument vector for spec
func RunArgs(spec *types.ContainerSpec) []string {
	args := []string{"run", "--rm", "-i"}

	if spec.Interactive() {
		args = append(args, "-t")
	}
	if spec.NetworkMode != "" {
		args = append(args, "--network", spec.NetworkMode)
	}
	if spec.User != "" {
		args = append(args, "--user", spec.User)
	}
	if spec.ReadonlyRoot {
		args = append(args, "--read-only")
	}
	for _, t := range spec.Tmpfs {
		mount := t.Destination
		if t.Options != "" {
			mount += ":" + t.Options
		}
		args = append(args, "--tmpfs", mount)
	}
	for _, b := range spec.Binds {
		args = append(args, "-v", b.String())
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	if spec.WorkingDir != "" {
		args = append(args, "-w", spec.WorkingDir)
	}

	keys := make([]string, 0, len(spec.Labels))
	for k := range spec.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+spec.Labels[k])
	}

	// The CLI takes only the executable as --entrypoint; its arguments
	// follow the image
	var command []string
	if len(spec.Entrypoint) > 0 {
		args = append(args, "--entrypoint", spec.Entrypoint[0])
		command = append(command, spec.Entrypoint[1:]...)
	}
	command = append(command, spec.Cmd...)

	args = append(args, spec.Image)
	return append(args, command...)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cuemby/contained/pkg/types"
)

const (
	bwrapBinary = "bwrap"

	// defaultPath is set in the sandbox, which starts with a cleared environment
	defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

// BwrapRunner runs a spec's entrypoint in a bubblewrap sandbox on the host,
// without a container engine
type BwrapRunner struct {
	execRunner
}

// NewBwrapRunner locates bwrap in PATH
func NewBwrapRunner(streams IO) (*BwrapRunner, error) {
	path, err := exec.LookPath(bwrapBinary)
	if err != nil {
		return nil, fmt.Errorf("bubblewrap not found: %w", err)
	}
	return &BwrapRunner{execRunner{name: bwrapBinary, path: path, io: streams}}, nil
}

// Name returns "bwrap"
func (r *BwrapRunner) Name() string {
	return r.name
}

// Run executes the sandboxed program and returns its exit code
func (r *BwrapRunner) Run(ctx context.Context, spec *types.ContainerSpec) (types.ExitResult, error) {
	args, err := BwrapArgs(spec)
	if err != nil {
		return types.ExitResult{}, err
	}
	return r.run(ctx, args)
}

// BwrapArgs maps spec onto bubblewrap options. The image is ignored: the
// sandbox root is empty apart from the binds and tmpfs mounts. Every
// namespace is unshared; the network is shared unless the mode is "none".
func BwrapArgs(spec *types.ContainerSpec) ([]string, error) {
	if len(spec.Entrypoint) == 0 {
		return nil, errors.New("bubblewrap needs a program to run")
	}

	args := []string{"--unshare-all", "--die-with-parent"}
	if spec.NetworkMode != "" && spec.NetworkMode != "none" {
		args = append(args, "--share-net")
	}

	for _, b := range spec.Binds {
		flag := "--bind"
		if b.ReadOnly() {
			flag = "--ro-bind"
		}
		args = append(args, flag, b.Source, b.Destination)
	}
	args = append(args, "--proc", "/proc", "--dev", "/dev")
	for _, t := range spec.Tmpfs {
		args = append(args, "--tmpfs", t.Destination)
	}

	args = append(args, "--clearenv", "--setenv", "PATH", defaultPath)
	for _, e := range spec.Env {
		name, value, _ := strings.Cut(e, "=")
		args = append(args, "--setenv", name, value)
	}

	if spec.WorkingDir != "" {
		args = append(args, "--chdir", spec.WorkingDir)
	}

	args = append(args, "--")
	args = append(args, spec.Entrypoint...)
	return append(args, spec.Cmd...), nil
}

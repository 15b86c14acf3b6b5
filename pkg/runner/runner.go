package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/metrics"
	"github.com/cuemby/contained/pkg/types"
)

// Runner runs a spec to completion and returns its exit code
type Runner interface {
	Name() string
	Run(ctx context.Context, spec *types.ContainerSpec) (types.ExitResult, error)
}

// IO is the local side of a run's standard streams
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StdIO returns the process's own standard streams
func StdIO() IO {
	return IO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// execRunner runs argv as a child process attached to the local streams.
// It is shared by the runners that delegate to an external binary.
type execRunner struct {
	name string
	path string
	io   IO
}

func (r *execRunner) run(ctx context.Context, argv []string) (types.ExitResult, error) {
	timer := metrics.NewTimer()
	logger := log.WithComponent("runner").With().Str("runner", r.name).Logger()

	cmd := exec.CommandContext(ctx, r.path, argv...)
	cmd.Stdin = r.io.Stdin
	cmd.Stdout = r.io.Stdout
	cmd.Stderr = r.io.Stderr

	logger.Debug().Str("path", r.path).Strs("args", argv).Msg("executing")

	var result types.ExitResult
	err := cmd.Run()
	timer.ObserveDurationVec(metrics.RunDuration, r.name)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		result.ExitCode = uint8(exitErr.ExitCode())
	default:
		metrics.RunsFailed.WithLabelValues("exec").Inc()
		return result, fmt.Errorf("failed to run %s: %w", r.name, err)
	}

	metrics.RunExitCode.WithLabelValues(r.name).Set(float64(result.ExitCode))
	logger.Debug().Uint8("exit_code", result.ExitCode).Msg("process exited")
	return result, nil
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/contained/pkg/attach"
	"github.com/cuemby/contained/pkg/engine"
	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/metrics"
	"github.com/cuemby/contained/pkg/spec"
	"github.com/cuemby/contained/pkg/storage"
	"github.com/cuemby/contained/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultDrainTimeout bounds the wait for remaining output once the exit
// code is known
const DefaultDrainTimeout = 5 * time.Second

// ErrOutput marks a failure forwarding container output after the container
// exited and was removed. The ExitResult returned with it is complete.
var ErrOutput = errors.New("container output")

// DefaultRegisterTimeout bounds how long start is held back waiting for the
// engine to acknowledge the next-exit wait
const DefaultRegisterTimeout = 2 * time.Second

// Engine is the part of the engine API a daemon run needs.
// *engine.Client implements it.
type Engine interface {
	Create(ctx context.Context, spec *types.ContainerSpec) (string, error)
	Attach(ctx context.Context, id string) (*attach.Session, error)
	WaitNextExit(ctx context.Context, id string) (*engine.Waiter, error)
	Start(ctx context.Context, id string) error
	Remove(ctx context.Context, id string, force bool) error
}

// RawModeFunc puts the local terminal into raw mode and returns the
// function that restores it
type RawModeFunc func() (restore func() error, err error)

// DaemonRunner runs a spec through the engine's API socket
type DaemonRunner struct {
	engine Engine
	io     IO

	// Store records containers between creation and removal; nil disables it
	Store storage.Store

	// RawMode is called for runs with a Tty; nil leaves the terminal alone
	RawMode RawModeFunc

	DrainTimeout    time.Duration
	RegisterTimeout time.Duration
}

// NewDaemonRunner creates a runner for eng with the given local streams
func NewDaemonRunner(eng Engine, streams IO) *DaemonRunner {
	return &DaemonRunner{
		engine:          eng,
		io:              streams,
		DrainTimeout:    DefaultDrainTimeout,
		RegisterTimeout: DefaultRegisterTimeout,
	}
}

// Name returns "daemon"
func (r *DaemonRunner) Name() string {
	return "daemon"
}

type waitResult struct {
	code uint8
	err  error
}

// Run creates the container, attaches, starts it, waits for its exit and
// removes it. The container is only removed once its exit code is known; a
// failure after creation leaves it in place and in the leftover ledger.
func (r *DaemonRunner) Run(ctx context.Context, cs *types.ContainerSpec) (types.ExitResult, error) {
	timer := metrics.NewTimer()
	logger := log.WithRunID(cs.Labels[spec.RunIDLabel])

	// Connections still open when the run returns are closed with ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id, err := r.engine.Create(ctx, cs)
	if err != nil {
		return types.ExitResult{}, r.fail(types.StageCreate, err)
	}
	result := types.ExitResult{ContainerID: id}
	logger = logger.With().Str("container_id", id).Logger()
	logger.Debug().Str("image", cs.Image).Msg("container created")
	r.record(logger, cs, id)

	if cs.Interactive() && r.RawMode != nil {
		restore, err := r.RawMode()
		if err != nil {
			return result, err
		}
		defer func() {
			if err := restore(); err != nil {
				logger.Warn().Err(err).Msg("terminal not restored")
			}
		}()
	}

	r.stage(logger, id, types.StageAttach)
	session, err := r.engine.Attach(ctx, id)
	if err != nil {
		return result, r.fail(types.StageAttach, err)
	}
	defer session.Close()
	session.Start(r.io.Stdin, r.io.Stdout, r.io.Stderr)

	// The wait is registered before start so an immediate exit is not missed.
	// Docker and podman send the wait response head as soon as the waiter is
	// registered; an engine that holds the head until exit gets started after
	// RegisterTimeout instead. The result crosses back over exited, written
	// once and read once.
	registered := make(chan error, 1)
	exited := make(chan waitResult, 1)
	go func() {
		waiter, err := r.engine.WaitNextExit(ctx, id)
		registered <- err
		if err != nil {
			exited <- waitResult{err: err}
			return
		}
		code, err := waiter.ExitCode()
		exited <- waitResult{code: code, err: err}
	}()
	select {
	case err := <-registered:
		if err != nil {
			return result, r.fail(types.StageWait, err)
		}
	case <-time.After(r.registerTimeout()):
		logger.Debug().Msg("wait not acknowledged by the engine, starting anyway")
	}

	r.stage(logger, id, types.StageStart)
	if err := r.engine.Start(ctx, id); err != nil {
		return result, r.fail(types.StageStart, err)
	}
	logger.Debug().Msg("container started")

	r.stage(logger, id, types.StageWait)
	exit := <-exited
	if exit.err != nil {
		return result, r.fail(types.StageWait, exit.err)
	}
	result.ExitCode = exit.code
	logger.Debug().Uint8("exit_code", exit.code).Msg("container exited")

	outputErr := r.drain(logger, session)

	r.stage(logger, id, types.StageRemove)
	if err := r.engine.Remove(ctx, id, false); err != nil {
		return result, r.fail(types.StageRemove, err)
	}
	r.forget(logger, id)

	timer.ObserveDurationVec(metrics.RunDuration, r.Name())
	metrics.RunExitCode.WithLabelValues(r.Name()).Set(float64(result.ExitCode))

	if outputErr != nil {
		return result, fmt.Errorf("%w: %w", ErrOutput, outputErr)
	}
	return result, nil
}

// drain waits for the output loop to reach the end of the stream, which the
// engine closes once the container has exited
func (r *DaemonRunner) drain(logger zerolog.Logger, session *attach.Session) error {
	timeout := r.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	select {
	case err := <-session.Done():
		return err
	case <-time.After(timeout):
		logger.Warn().Dur("timeout", timeout).Msg("output still open after exit, closing attach stream")
		return nil
	}
}

func (r *DaemonRunner) registerTimeout() time.Duration {
	if r.RegisterTimeout <= 0 {
		return DefaultRegisterTimeout
	}
	return r.RegisterTimeout
}

func (r *DaemonRunner) fail(stage types.Stage, err error) error {
	metrics.RunsFailed.WithLabelValues(string(stage)).Inc()
	return fmt.Errorf("container %s: %w", stage, err)
}

// Ledger failures never fail a run

func (r *DaemonRunner) record(logger zerolog.Logger, cs *types.ContainerSpec, id string) {
	if r.Store == nil {
		return
	}
	err := r.Store.RecordLeftover(&types.Leftover{
		ContainerID: id,
		RunID:       cs.Labels[spec.RunIDLabel],
		Image:       cs.Image,
		Entrypoint:  cs.Entrypoint,
		CreatedAt:   time.Now().UTC(),
		Stage:       types.StageCreate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to record container in ledger")
	}
}

func (r *DaemonRunner) stage(logger zerolog.Logger, id string, stage types.Stage) {
	if r.Store == nil {
		return
	}
	if err := r.Store.UpdateStage(id, stage); err != nil {
		logger.Warn().Err(err).Msg("failed to update ledger")
	}
}

func (r *DaemonRunner) forget(logger zerolog.Logger, id string) {
	if r.Store == nil {
		return
	}
	if err := r.Store.DeleteLeftover(id); err != nil {
		logger.Warn().Err(err).Msg("failed to drop container from ledger")
	}
}

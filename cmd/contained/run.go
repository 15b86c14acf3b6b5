package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/cuemby/contained/pkg/engine"
	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/runner"
	"github.com/cuemby/contained/pkg/spec"
	"github.com/cuemby/contained/pkg/storage"
	"github.com/cuemby/contained/pkg/terminal"
	"github.com/cuemby/contained/pkg/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] PROGRAM [ARGS...]",
	Short: "Run a host program in a container via the engine socket",
	Long: `Run a host program in a container, talking to the container engine
over its API socket.

Examples:
  # List the current directory from inside a container
  contained run --current-dir ls -l

  # Give a build tool a writable checkout and network access
  contained run --current-dir-writable --network bridge make`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDaemon,
}

var runImageCmd = &cobra.Command{
	Use:   "run-image [flags] IMAGE [ARGS...]",
	Short: "Run an image with host mounts through the podman or docker CLI",
	Long: `Run an existing image with the same mount, environment and working
directory handling as run, by invoking "<engine> run --rm".

Examples:
  # Run a shell from alpine in the current directory
  contained run-image --current-dir --entrypoint /bin/sh alpine`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

var wrappedCmd = &cobra.Command{
	Use:   "wrapped [flags] PROGRAM [ARGS...]",
	Short: "Run a host program in a bubblewrap sandbox",
	Long: `Run a host program in a bubblewrap sandbox with the same mounts a
container would get. No container engine is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWrapped,
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, runImageCmd, wrappedCmd} {
		addSpecFlags(cmd)
	}

	for _, cmd := range []*cobra.Command{runCmd, runImageCmd} {
		cmd.Flags().String("network", spec.DefaultNetwork, "Network mode")
		cmd.Flags().BoolP("x11", "X", false, "Forward the X11 display")
	}

	runCmd.Flags().String("image", spec.DefaultImage, "Image to run the program in")
	runCmd.Flags().String("socket", "", "Engine API socket (default $DOCKER_HOST or /var/run/docker.sock)")

	runImageCmd.Flags().String("entrypoint", "", "Override the image entrypoint")
	runImageCmd.Flags().String("engine", "", "Container CLI: podman or docker")

	wrappedCmd.Flags().Bool("network", false, "Share the host network")
}

// addSpecFlags defines the mount, environment and working directory flags
// shared by every runner
func addSpecFlags(cmd *cobra.Command) {
	// Everything after the program belongs to the program
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().Bool("current-dir", false, "Mount the current directory read-only")
	cmd.Flags().Bool("current-dir-writable", false, "Mount the current directory writable")
	cmd.MarkFlagsMutuallyExclusive("current-dir", "current-dir-writable")
	cmd.Flags().StringArray("mount", nil, "Mount an additional path read-only (repeatable)")
	cmd.Flags().StringArray("mount-writable", nil, "Mount an additional path writable (repeatable)")
	cmd.Flags().StringArrayP("env", "e", nil, "Set NAME=value, or pass NAME from the host (repeatable)")
	cmd.Flags().StringP("workdir", "w", "", "Working directory")
}

// newBuilder applies the flags common to every runner
func newBuilder(cmd *cobra.Command) *spec.Builder {
	currentDir, _ := cmd.Flags().GetBool("current-dir")
	currentDirWritable, _ := cmd.Flags().GetBool("current-dir-writable")
	mounts, _ := cmd.Flags().GetStringArray("mount")
	mountsWritable, _ := cmd.Flags().GetStringArray("mount-writable")
	env, _ := cmd.Flags().GetStringArray("env")
	workdir, _ := cmd.Flags().GetString("workdir")

	b := spec.NewBuilder().
		WithMounts(slices.Concat(profile.Mounts, mounts), true).
		WithMounts(slices.Concat(profile.MountsWritable, mountsWritable), false).
		WithEnv(slices.Concat(profile.Env, env)...).
		WithWorkDir(workdir).
		WithRunID(uuid.NewString())

	if currentDir || currentDirWritable {
		b.WithCurrentDir(currentDirWritable)
	}
	if cmd.Flags().Lookup("x11") != nil {
		x11, _ := cmd.Flags().GetBool("x11")
		b.WithX11(x11)
	}
	return b
}

func runDaemon(cmd *cobra.Command, args []string) error {
	socket := stringFlag(cmd, "socket", profile.Socket)

	cs, err := newBuilder(cmd).
		WithImage(stringFlag(cmd, "image", profile.Image)).
		WithNetwork(stringFlag(cmd, "network", profile.Network)).
		WithProgram(args[0], args[1:]...).
		WithTty(terminal.Detect()).
		Build()
	if err != nil {
		return err
	}

	r := runner.NewDaemonRunner(engine.NewClient(socket), runner.StdIO())
	r.RawMode = func() (func() error, error) {
		guard, err := terminal.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return nil, err
		}
		return guard.Restore, nil
	}

	stateDir := stringFlag(cmd, "state-dir", profile.StateDir)
	if store, err := storage.NewBoltStore(stateDir); err != nil {
		log.Logger.Warn().Err(err).Msg("leftover ledger unavailable")
	} else {
		r.Store = store
	}

	return execute(cmd, r, cs)
}

func runImage(cmd *cobra.Command, args []string) error {
	engineName := stringFlag(cmd, "engine", profile.Engine)
	if engineName != "podman" && engineName != "docker" {
		return fmt.Errorf("unknown engine %q (want podman or docker)", engineName)
	}
	entrypoint, _ := cmd.Flags().GetString("entrypoint")

	cs, err := newBuilder(cmd).
		WithImage(args[0]).
		WithEntrypoint(entrypoint).
		WithArgs(args[1:]...).
		WithNetwork(stringFlag(cmd, "network", profile.Network)).
		WithTty(terminal.Detect()).
		Build()
	if err != nil {
		return err
	}

	r, err := runner.NewCommandRunner(engineName, runner.StdIO())
	if err != nil {
		return err
	}
	return execute(cmd, r, cs)
}

func runWrapped(cmd *cobra.Command, args []string) error {
	network := spec.DefaultNetwork
	if shared, _ := cmd.Flags().GetBool("network"); shared {
		network = "host"
	}

	cs, err := newBuilder(cmd).
		WithNetwork(network).
		WithProgram(args[0], args[1:]...).
		Build()
	if err != nil {
		return err
	}

	r, err := runner.NewBwrapRunner(runner.StdIO())
	if err != nil {
		return err
	}
	return execute(cmd, r, cs)
}

// execute runs cs and turns a non-zero exit code into an exitCodeError. An
// output failure after a non-zero exit is logged so the exit code survives.
func execute(cmd *cobra.Command, r runner.Runner, cs *types.ContainerSpec) error {
	logger := log.WithRunID(cs.Labels[spec.RunIDLabel])
	logger.Debug().
		Str("runner", r.Name()).
		Strs("entrypoint", cs.Entrypoint).
		Str("workdir", cs.WorkingDir).
		Bool("tty", cs.Interactive()).
		Msg("running")

	result, err := r.Run(cmd.Context(), cs)
	writeMetrics(cmd)
	if err != nil {
		if !errors.Is(err, runner.ErrOutput) || result.ExitCode == 0 {
			return err
		}
		logger.Error().Err(err).Msg("container output incomplete")
	}
	if result.ExitCode != 0 {
		return &exitCodeError{code: result.ExitCode}
	}
	return nil
}

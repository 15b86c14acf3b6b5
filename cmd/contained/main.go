package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/contained/pkg/config"
	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// profile holds the loaded configuration for the running command
var profile = config.Default()

// exitCodeError carries a container's non-zero exit code to main
type exitCodeError struct {
	code uint8
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var exitErr *exitCodeError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		os.Exit(int(exitErr.code))
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "contained",
	Short: "Run a host program in a container without building an image",
	Long: `contained runs a program from the host inside an isolated container.

The program, its directory and the host's system directories are bound
read-only into an otherwise empty image with networking disabled. The
container engine is driven directly over its API socket; run-image and
wrapped use the podman/docker CLI or bubblewrap instead.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"contained version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Profile file (default $XDG_CONFIG_HOME/contained/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory of the leftover container ledger")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runImageCmd)
	rootCmd.AddCommand(wrappedCmd)
	rootCmd.AddCommand(leftoversCmd)
}

// setup loads the profile and initializes logging before any subcommand
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	profile = cfg

	level := stringFlag(cmd, "log-level", profile.LogLevel)
	jsonOutput := profile.LogJSON
	if cmd.Flags().Changed("log-json") {
		jsonOutput, _ = cmd.Flags().GetBool("log-json")
	}
	log.Init(log.Config{
		Level:      log.ParseLevel(level),
		JSONOutput: jsonOutput,
		Output:     os.Stderr,
	})
	return nil
}

// stringFlag returns the flag value when given on the command line, and
// fallback from the profile otherwise
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// writeMetrics exports the metrics registry when a metrics file is configured
func writeMetrics(cmd *cobra.Command) {
	path := stringFlag(cmd, "metrics-file", profile.MetricsFile)
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Msg("failed to write metrics file")
	}
}

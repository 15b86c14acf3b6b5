package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/contained/pkg/engine"
	"github.com/cuemby/contained/pkg/runner"
	"github.com/cuemby/contained/pkg/storage"
	"github.com/spf13/cobra"
)

var leftoversCmd = &cobra.Command{
	Use:   "leftovers",
	Short: "Manage containers left behind by failed runs",
	Long: `A container that was created but could not be confirmed exited and
removed stays in the engine for inspection. These commands list and remove
such containers.`,
}

var leftoversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers left behind",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		leftovers, err := store.ListLeftovers()
		if err != nil {
			return err
		}
		if len(leftovers) == 0 {
			fmt.Println("No leftover containers")
			return nil
		}

		fmt.Printf("%-14s %-10s %-12s %-20s %s\n", "CONTAINER", "STAGE", "IMAGE", "CREATED", "COMMAND")
		for _, l := range leftovers {
			fmt.Printf("%-14s %-10s %-12s %-20s %s\n",
				shortID(l.ContainerID),
				l.Stage,
				l.Image,
				l.CreatedAt.Local().Format(time.DateTime),
				strings.Join(l.Entrypoint, " "),
			)
		}
		return nil
	},
}

var leftoversPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Force-remove containers left behind",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		client := engine.NewClient(stringFlag(cmd, "socket", profile.Socket))

		results, err := runner.Prune(cmd.Context(), client, store)
		for _, res := range results {
			switch {
			case res.Err != nil:
				fmt.Printf("✗ %s: %v\n", shortID(res.Leftover.ContainerID), res.Err)
			case res.Gone:
				fmt.Printf("✓ %s already gone\n", shortID(res.Leftover.ContainerID))
			default:
				fmt.Printf("✓ %s removed\n", shortID(res.Leftover.ContainerID))
			}
		}
		return err
	},
}

func init() {
	leftoversPruneCmd.Flags().String("socket", "", "Engine API socket (default $DOCKER_HOST or /var/run/docker.sock)")

	leftoversCmd.AddCommand(leftoversListCmd)
	leftoversCmd.AddCommand(leftoversPruneCmd)
}

func openStore(cmd *cobra.Command) (*storage.BoltStore, error) {
	return storage.NewBoltStore(stringFlag(cmd, "state-dir", profile.StateDir))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

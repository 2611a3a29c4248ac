package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/launcher"
)

// watcherExecCmd is the hidden re-exec target the launcher spawns with
// Setsid to detach into its own session before becoming the watcher. It
// is never invoked directly by a user.
var watcherExecCmd = &cobra.Command{
	Use:    "__watcher-exec NAME",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "watcher-exec: %v\n", err)
			os.Exit(1)
		}
		os.Exit(launcher.RunWatcherExec(store, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(watcherExecCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/livemonitor"
)

var adminDebugCmd = &cobra.Command{
	Use:   "debug NAME",
	Short: "Interactive live view of a server's lockfile state",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDebug,
}

func init() {
	adminCmd.AddCommand(adminDebugCmd)
}

func runAdminDebug(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	return livemonitor.Run(store, args[0])
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/client"
)

var (
	adminIncrefPID      int
	adminIncrefMetadata string
)

var adminIncrefCmd = &cobra.Command{
	Use:   "incref NAME",
	Short: "Attach a client PID directly, incrementing refcount",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminIncref,
}

func init() {
	adminIncrefCmd.Flags().IntVar(&adminIncrefPID, "pid", 0, "client PID to attach (defaults to this process)")
	adminIncrefCmd.Flags().StringVar(&adminIncrefMetadata, "metadata", "", "free-form client metadata")
	adminCmd.AddCommand(adminIncrefCmd)
}

func runAdminIncref(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	c := client.New(store)

	pid := adminIncrefPID
	if pid == 0 {
		pid = os.Getpid()
	}

	refcount, err := c.Incref(name, pid, adminIncrefMetadata)
	logInvocation(store, name, "admin incref", args, err, adminIncrefMetadata)
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name, "refcount": refcount})
		return nil
	}
	p.Success(fmt.Sprintf("attached to %s (refcount %d)", name, refcount))
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/client"
)

var adminDecrefPID int

var adminDecrefCmd = &cobra.Command{
	Use:   "decref NAME",
	Short: "Detach a client PID directly, decrementing refcount",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDecref,
}

func init() {
	adminDecrefCmd.Flags().IntVar(&adminDecrefPID, "pid", 0, "client PID to detach (defaults to this process)")
	adminCmd.AddCommand(adminDecrefCmd)
}

func runAdminDecref(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	c := client.New(store)

	pid := adminDecrefPID
	if pid == 0 {
		pid = os.Getpid()
	}

	refcount, err := c.Decref(name, pid)
	logInvocation(store, name, "admin decref", args, err, "")
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name, "refcount": refcount})
		return nil
	}
	if refcount == 0 {
		p.Success(fmt.Sprintf("detached from %s, entering grace period", name))
	} else {
		p.Success(fmt.Sprintf("detached from %s (refcount %d)", name, refcount))
	}
	return nil
}

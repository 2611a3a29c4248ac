package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/client"
)

var unusePID int

var unuseCmd = &cobra.Command{
	Use:   "unuse NAME",
	Short: "Detach from a server (decref), idempotent if already in grace",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnuse,
}

func init() {
	unuseCmd.Flags().IntVar(&unusePID, "pid", 0, "client PID to detach (defaults to the parent process)")
	rootCmd.AddCommand(unuseCmd)
}

func runUnuse(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	c := client.New(store)

	pid := clientPID(unusePID)
	refcount, alreadyGone, err := c.Unuse(name, pid)
	logInvocation(store, name, "unuse", args, err, "")
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name, "refcount": refcount, "already_detached": alreadyGone})
		return nil
	}

	if alreadyGone {
		p.Warn(fmt.Sprintf("%s is already in grace period, nothing to detach", name))
		return nil
	}
	if refcount == 0 {
		p.Success(fmt.Sprintf("detached from %s, entering grace period", name))
	} else {
		p.Success(fmt.Sprintf("detached from %s (refcount %d)", name, refcount))
	}
	return nil
}

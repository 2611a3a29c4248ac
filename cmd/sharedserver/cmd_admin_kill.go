package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/admin"
)

var adminKillCmd = &cobra.Command{
	Use:   "kill NAME",
	Short: "Immediately SIGKILL the server and its watcher",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminKill,
}

func init() {
	adminCmd.AddCommand(adminKillCmd)
}

func runAdminKill(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	a := admin.New(store)

	err = a.Kill(name)
	logInvocation(store, name, "admin kill", args, err, "")
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name})
		return nil
	}
	p.Success(fmt.Sprintf("killed %s", name))
	return nil
}

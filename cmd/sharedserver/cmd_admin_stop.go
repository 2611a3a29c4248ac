package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/admin"
)

var adminStopForce bool

var adminStopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Gracefully stop a server, escalating to SIGKILL with --force",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminStop,
}

func init() {
	adminStopCmd.Flags().BoolVar(&adminStopForce, "force", false, "escalate to SIGKILL if the server ignores SIGTERM")
	adminCmd.AddCommand(adminStopCmd)
}

func runAdminStop(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	a := admin.New(store)

	err = a.Stop(name, adminStopForce)
	logInvocation(store, name, "admin stop", args, err, "")
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name})
		return nil
	}
	p.Success(fmt.Sprintf("stopped %s", name))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/launcher"
)

var (
	adminStartGracePeriod string
	adminStartEnv         []string
	adminStartLogFile     string
)

var adminStartCmd = &cobra.Command{
	Use:   "start NAME -- CMD ARGS...",
	Short: "Start a server with no attached client",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdminStart,
}

func init() {
	adminStartCmd.Flags().StringVar(&adminStartGracePeriod, "grace-period", "5m", "grace period before an unreferenced server is stopped")
	adminStartCmd.Flags().StringArrayVar(&adminStartEnv, "env", nil, "KEY=VALUE environment variable (repeatable)")
	adminStartCmd.Flags().StringVar(&adminStartLogFile, "log-file", "", "file to capture the server's stdout/stderr")
	adminCmd.AddCommand(adminStartCmd)
}

func runAdminStart(cmd *cobra.Command, args []string) error {
	name := args[0]
	var command []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		command = args[dash:]
	}
	if len(command) == 0 {
		return exitcodes.InvalidArgv("admin start requires a command after --")
	}
	if err := launcher.ValidateEnv(adminStartEnv); err != nil {
		return exitcodes.InvalidArgv(err.Error())
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	l := launcher.New(store, "")

	rec, err := l.Start(launcher.StartOpts{
		Name:        name,
		Command:     command,
		GracePeriod: adminStartGracePeriod,
		Env:         adminStartEnv,
		LogFile:     adminStartLogFile,
	})
	logInvocation(store, name, "admin start", args, err, "")
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"ok": true, "name": name, "pid": rec.PID})
		return nil
	}
	p.Success(fmt.Sprintf("started %s (pid %d), entering grace period immediately (no client attached)", name, rec.PID))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/client"
	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/invocationlog"
	"github.com/georgeharker/sharedserver/internal/launcher"
	"github.com/georgeharker/sharedserver/internal/lockstore"
)

var (
	useGracePeriod string
	useMetadata    string
	usePID         int
	useEnv         []string
	useLogFile     string
)

var useCmd = &cobra.Command{
	Use:   "use NAME [-- CMD ARGS...]",
	Short: "Start-or-attach: start the server if stopped, else incref",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUse,
}

func init() {
	useCmd.Flags().StringVar(&useGracePeriod, "grace-period", "5m", "grace period before an unreferenced server is stopped")
	useCmd.Flags().StringVar(&useMetadata, "metadata", "", "free-form client metadata recorded alongside the attachment")
	useCmd.Flags().IntVar(&usePID, "pid", 0, "client PID to attach (defaults to the parent process)")
	useCmd.Flags().StringArrayVar(&useEnv, "env", nil, "KEY=VALUE environment variable to pass to the server (repeatable)")
	useCmd.Flags().StringVar(&useLogFile, "log-file", "", "file to capture the server's stdout/stderr")
	rootCmd.AddCommand(useCmd)
}

func runUse(cmd *cobra.Command, args []string) error {
	name := args[0]
	var command []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		command = args[dash:]
	}

	if err := launcher.ValidateEnv(useEnv); err != nil {
		return exitcodes.InvalidArgv(err.Error())
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	l := launcher.New(store, "")
	c := client.New(store)

	pid := clientPID(usePID)
	res, err := c.Use(l, name, pid, useGracePeriod, command, useEnv, useLogFile, useMetadata)
	logInvocation(store, name, "use", args, err, useMetadata)
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{
			"ok": true, "name": name, "pid": res.PID,
			"refcount": res.Refcount, "started": res.Started, "rescued": res.Rescued,
		})
		return nil
	}

	switch {
	case res.Started:
		p.Success(fmt.Sprintf("started %s (pid %d, refcount %d)", name, res.PID, res.Refcount))
	case res.Rescued:
		p.Warn(fmt.Sprintf("rescued %s from grace period (refcount %d)", name, res.Refcount))
	default:
		p.Success(fmt.Sprintf("attached to %s (refcount %d)", name, res.Refcount))
	}
	return nil
}

// logInvocation writes a best-effort audit record; failures are swallowed
// since the invocation log has no durability guarantee.
func logInvocation(store *lockstore.Store, name, command string, args []string, cause error, metadata string) {
	entry := invocationlog.Success(command, args, metadata)
	if cause != nil {
		entry = invocationlog.Failure(command, args, cause, metadata)
	}
	_ = invocationlog.Log(store.Dir, name, entry)
}

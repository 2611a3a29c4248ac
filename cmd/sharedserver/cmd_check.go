package main

import (
	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/state"
)

// checkCmd prints a server's state and exits with the oracle's own
// exit-code mapping (0 Active, 1 Grace, 2 Stopped) so it can be used
// directly in shell conditionals.
var checkCmd = &cobra.Command{
	Use:           "check NAME",
	Short:         "Print state and exit 0/1/2 for active/grace/stopped",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}
	oracle := state.NewOracle(store)
	st, err := oracle.State(name)
	if err != nil {
		return err
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(map[string]any{"name": name, "state": st.String()})
	} else {
		p.Textf("%s\n", st.String())
	}

	exitcodes.Exit(checkExitCode(st))
	return nil
}

// checkExitCode maps a ServerState to the exit code `check` reports,
// split out from runCheck so the mapping itself is testable without
// tripping the os.Exit call guarding it.
func checkExitCode(st state.ServerState) int {
	switch st {
	case state.Active:
		return exitcodes.CheckActive
	case state.Grace:
		return exitcodes.CheckGrace
	default:
		return exitcodes.CheckStopped
	}
}

package main

import (
	"os"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	ui "github.com/georgeharker/sharedserver/internal/ui"
)

// getenvDefault returns the environment variable k, or d if unset/empty.
func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// getPrinter builds a Printer honoring the global --output/--no-color/
// --no-emoji flags.
func getPrinter() ui.Printer {
	return ui.NewPrinterFromGlobal(flagOutput)
}

// openStore resolves the lock directory and opens the Store. A resolution
// failure (such as an unwritable lock directory) is returned unchanged, so
// it exits with the general error code.
func openStore() (*lockstore.Store, error) {
	return lockstore.New()
}

// clientPID resolves the --pid flag to the PID that should be recorded as
// the attached client: the flag value if given (non-zero), else the
// invoking shell's PID (our parent), matching a wrapper script that calls
// `sharedserver use` on behalf of a long-lived caller.
func clientPID(flagPID int) int {
	if flagPID != 0 {
		return flagPID
	}
	return os.Getppid()
}

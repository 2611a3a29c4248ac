package main

import (
	"testing"

	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/state"
)

func TestCheckExitCodeMapping(t *testing.T) {
	tests := []struct {
		st   state.ServerState
		want int
	}{
		{state.Active, exitcodes.CheckActive},
		{state.Grace, exitcodes.CheckGrace},
		{state.Stopped, exitcodes.CheckStopped},
	}
	for _, tt := range tests {
		if got := checkExitCode(tt.st); got != tt.want {
			t.Errorf("checkExitCode(%v) = %d, want %d", tt.st, got, tt.want)
		}
	}
}

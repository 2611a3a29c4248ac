// Package state derives a server's lifecycle state from on-disk lockfile
// presence and process liveness. There is no persisted "current state"
// field anywhere in the system — State is a pure function, recomputed on
// every call, so it can never drift out of sync with reality.
package state

import (
	"github.com/georgeharker/sharedserver/internal/health"
	"github.com/georgeharker/sharedserver/internal/lockstore"
)

// ServerState is one of the three lifecycle states a named server can be
// observed in.
type ServerState string

const (
	Stopped ServerState = "stopped"
	Active  ServerState = "active"
	Grace   ServerState = "grace"
)

func (s ServerState) String() string { return string(s) }

// Oracle derives ServerState for names rooted in a Store.
type Oracle struct {
	Store *lockstore.Store
}

// NewOracle builds an Oracle over store.
func NewOracle(store *lockstore.Store) *Oracle {
	return &Oracle{Store: store}
}

// State implements the derivation in the supervisor's state-oracle design:
// no server file -> Stopped; server file present but its PID is dead ->
// Stopped (the lockfiles may still be on disk, stale); clients file
// present -> Active; otherwise -> Grace.
func (o *Oracle) State(name string) (ServerState, error) {
	if !o.Store.ServerExists(name) {
		return Stopped, nil
	}

	rec, err := o.Store.ReadServer(name)
	if err != nil {
		return Stopped, err
	}

	if !health.IsAlive(rec.PID) {
		return Stopped, nil
	}

	if o.Store.ClientsExists(name) {
		return Active, nil
	}
	return Grace, nil
}

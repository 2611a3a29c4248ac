// Package watcher implements the supervisor's poll loop: the one
// long-lived process per server, responsible for detecting server death,
// sweeping dead clients, running the grace timer, and escalating from
// SIGTERM to SIGKILL when grace expires.
package watcher

import (
	"os"
	"syscall"
	"time"

	"github.com/georgeharker/sharedserver/internal/health"
	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/rs/zerolog"
)

// PollInterval is how often the watcher re-checks server liveness and
// sweeps dead clients.
const PollInterval = 5 * time.Second

// termGracePeriod is how long the watcher waits after SIGTERM before
// escalating to SIGKILL.
const termGracePeriod = 5 * time.Second

// Watcher supervises one named server until it dies or its grace period
// expires.
type Watcher struct {
	Store     *lockstore.Store
	Name      string
	ServerPID int
	Grace     time.Duration
	Log       zerolog.Logger

	graceStart time.Time
}

// New builds a Watcher for name, supervising serverPID with the given
// grace duration.
func New(store *lockstore.Store, name string, serverPID int, grace time.Duration, log zerolog.Logger) *Watcher {
	return &Watcher{Store: store, Name: name, ServerPID: serverPID, Grace: grace, Log: log}
}

// Run blocks until the server dies (detected directly or via grace
// expiry) and the lockfiles have been cleaned up.
func (w *Watcher) Run() {
	for {
		if !health.IsAlive(w.ServerPID) {
			w.Log.Info().Msg("server process is gone, cleaning up")
			_ = w.Store.DeleteClients(w.Name)
			_ = w.Store.DeleteServer(w.Name)
			return
		}

		hasClients := w.sweepDeadClients()

		switch {
		case hasClients:
			w.graceStart = time.Time{}
		case w.graceStart.IsZero():
			w.graceStart = time.Now()
			w.Log.Info().Dur("grace_period", w.Grace).Msg("entering grace period")
		case time.Since(w.graceStart) >= w.Grace:
			w.terminateServer()
			return
		}

		time.Sleep(PollInterval)
	}
}

// sweepDeadClients implements the two-phase shared-then-exclusive dead-
// client reap: a cheap shared-lock read determines whether any recorded
// client is dead before ever taking the exclusive lock that blocking
// incref/decref would contend on.
func (w *Watcher) sweepDeadClients() bool {
	if !w.Store.ClientsExists(w.Name) {
		return false
	}

	var snapshot lockstore.ClientsRecord
	err := w.Store.WithShared(w.Store.ClientsPath(w.Name), func(f *os.File) error {
		return lockstore.ReadClientsFile(f, &snapshot)
	})
	if err != nil {
		return false
	}

	dead := make(map[int]bool)
	for pid := range snapshot.Clients {
		if !health.IsAlive(pid) {
			dead[pid] = true
		}
	}
	if len(dead) == 0 {
		return len(snapshot.Clients) > 0
	}

	var remaining int
	var deletedFile bool
	err = w.Store.WithExclusive(w.Store.ClientsPath(w.Name), func(f *os.File) error {
		var current lockstore.ClientsRecord
		if err := lockstore.ReadClientsFile(f, &current); err != nil {
			return err
		}
		changed := false
		for pid := range dead {
			if _, ok := current.Clients[pid]; ok {
				delete(current.Clients, pid)
				changed = true
			}
		}
		if !changed {
			remaining = len(current.Clients)
			return nil
		}
		current.Refcount = uint32(len(current.Clients))
		remaining = len(current.Clients)
		if remaining == 0 {
			deletedFile = true
			return nil
		}
		return lockstore.WriteClientsFile(f, &current)
	})
	if err != nil {
		return len(snapshot.Clients) > 0
	}
	if deletedFile {
		// The exclusive lock above has already been released by the time
		// WithExclusive returns; deleting now is safe because the zero-
		// refcount state was observed under that lock.
		_ = w.Store.DeleteClients(w.Name)
		return false
	}
	return remaining > 0
}

func (w *Watcher) terminateServer() {
	w.Log.Info().Msg("grace period expired, terminating server")
	_ = syscall.Kill(w.ServerPID, syscall.SIGTERM)
	time.Sleep(termGracePeriod)
	if health.IsAlive(w.ServerPID) {
		w.Log.Warn().Msg("server still alive after SIGTERM, sending SIGKILL")
		_ = syscall.Kill(w.ServerPID, syscall.SIGKILL)
	}
	_ = w.Store.DeleteServer(w.Name)
}


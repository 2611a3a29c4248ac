// Package registry enumerates the named servers known to a lock
// directory, deriving each one's live state for the `list` command.
package registry

import (
	"sort"
	"time"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

// Summary is one server's entry in a listing.
type Summary struct {
	Name     string
	State    state.ServerState
	PID      int
	Refcount uint32
	Uptime   time.Duration
}

// Registry scans a Store for known server names and derives their state.
type Registry struct {
	Store  *lockstore.Store
	Oracle *state.Oracle
}

// New builds a Registry.
func New(store *lockstore.Store) *Registry {
	return &Registry{Store: store, Oracle: state.NewOracle(store)}
}

// List scans the lock directory for every NAME.server.json file and
// returns a summary of each one whose state is not Stopped, sorted by
// name. A server that disappears
// between the directory scan and the per-server read (a race with its own
// watcher exiting) is silently skipped rather than reported as an error.
func (r *Registry) List() ([]Summary, error) {
	names, err := r.Store.Names()
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summary, ok := r.summarize(name)
		if ok {
			summaries = append(summaries, summary)
		}
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (r *Registry) summarize(name string) (Summary, bool) {
	st, err := r.Oracle.State(name)
	if err != nil {
		return Summary{}, false
	}
	if st == state.Stopped {
		return Summary{}, false
	}

	rec, err := r.Store.ReadServer(name)
	if err != nil {
		return Summary{}, false
	}

	summary := Summary{
		Name:   name,
		State:  st,
		PID:    rec.PID,
		Uptime: time.Since(rec.StartedAt),
	}

	if st == state.Active {
		if clients, err := r.Store.ReadClients(name); err == nil {
			summary.Refcount = clients.Refcount
		}
	}

	return summary, true
}

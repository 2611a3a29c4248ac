// Package client implements the attachment protocol (incref, decref, use,
// unuse) that clients use to share a supervised server and let the
// watcher know when it is safe to let it go.
package client

import (
	"fmt"
	"os"
	"time"

	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/launcher"
	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

// Client wires the attachment operations to one Store/Oracle pair.
type Client struct {
	Store  *lockstore.Store
	Oracle *state.Oracle
}

// New builds a Client.
func New(store *lockstore.Store) *Client {
	return &Client{Store: store, Oracle: state.NewOracle(store)}
}

// Incref attaches pid to name, recreating the clients file if the server
// is currently in Grace (a rescue) or incrementing the existing refcount
// if Active. Returns the new refcount.
//
// The existence check and the create-or-update happen inside a single
// exclusive-lock critical section: checking ClientsExists and then
// writing separately (as this used to) left a window where two racing
// rescues could each see "no clients file", each build their own
// single-client record, and have the second WriteClients silently
// overwrite the first client's attachment.
func (c *Client) Incref(name string, pid int, metadata string) (uint32, error) {
	st, err := c.Oracle.State(name)
	if err != nil {
		return 0, err
	}
	if st == state.Stopped {
		return 0, exitcodes.NotRunning(name)
	}

	var newRefcount uint32
	err = c.Store.WithExclusive(c.Store.ClientsPath(name), func(f *os.File) error {
		info, err := f.Stat()
		if err != nil {
			return exitcodes.IOErr(c.Store.ClientsPath(name), err)
		}

		var rec lockstore.ClientsRecord
		if info.Size() == 0 {
			rec = lockstore.NewClientsRecord()
		} else if err := lockstore.ReadClientsFile(f, &rec); err != nil {
			return exitcodes.CorruptLockfile(c.Store.ClientsPath(name), err)
		}

		rec.Clients[pid] = lockstore.ClientInfo{AttachedAt: time.Now().UTC(), Metadata: metadata}
		rec.Refcount = uint32(len(rec.Clients))
		newRefcount = rec.Refcount
		return lockstore.WriteClientsFile(f, &rec)
	})
	if err != nil {
		return 0, err
	}
	return newRefcount, nil
}

// Decref detaches pid from name. Returns the new refcount (0 means the
// server has entered Grace).
func (c *Client) Decref(name string, pid int) (uint32, error) {
	st, err := c.Oracle.State(name)
	if err != nil {
		return 0, err
	}
	switch st {
	case state.Stopped:
		return 0, exitcodes.NotRunning(name)
	case state.Grace:
		return 0, exitcodes.AlreadyDetached(name)
	}

	var newRefcount uint32
	var deleteAfter bool
	err = c.Store.WithExclusive(c.Store.ClientsPath(name), func(f *os.File) error {
		var rec lockstore.ClientsRecord
		if err := lockstore.ReadClientsFile(f, &rec); err != nil {
			return exitcodes.CorruptLockfile(c.Store.ClientsPath(name), err)
		}
		if _, ok := rec.Clients[pid]; !ok {
			return exitcodes.NotAttached(pid, name)
		}
		delete(rec.Clients, pid)

		// Repair any refcount drift in place, matching the decref
		// sanity check: refcount must always equal len(clients).
		decremented := rec.Refcount
		if decremented > 0 {
			decremented--
		}
		rec.Refcount = uint32(len(rec.Clients))
		if decremented != rec.Refcount {
			fmt.Fprintf(os.Stderr, "warning: %s refcount drift (%d, but %d clients); repaired\n", name, decremented, rec.Refcount)
		}
		newRefcount = rec.Refcount

		if newRefcount == 0 {
			deleteAfter = true
			return nil
		}
		return lockstore.WriteClientsFile(f, &rec)
	})
	if err != nil {
		return 0, err
	}
	if deleteAfter {
		_ = c.Store.DeleteClients(name)
	}
	return newRefcount, nil
}

// UseResult reports what Use actually did, for CLI-layer messaging.
type UseResult struct {
	Started  bool
	Rescued  bool
	Refcount uint32
	PID      int
}

// Use is the atomic start-or-attach operation: it starts the server with
// pid as its initial client if stopped, or increments refcount (rescuing
// from Grace if necessary) if already running.
func (c *Client) Use(l *launcher.Launcher, name string, pid int, grace string, command []string, env []string, logFile string, metadata string) (UseResult, error) {
	st, err := c.Oracle.State(name)
	if err != nil {
		return UseResult{}, err
	}

	switch st {
	case state.Stopped:
		if len(command) == 0 {
			return UseResult{}, exitcodes.InvalidArgv(
				"server is not running and no command was provided; usage: use NAME --grace-period D -- CMD ARGS...")
		}
		rec, err := l.Start(launcher.StartOpts{
			Name:        name,
			Command:     command,
			GracePeriod: grace,
			Env:         env,
			LogFile:     logFile,
			ClientPID:   pid,
			Metadata:    metadata,
		})
		if err != nil {
			return UseResult{}, err
		}
		return UseResult{Started: true, Refcount: 1, PID: rec.PID}, nil

	case state.Active:
		n, err := c.Incref(name, pid, metadata)
		if err != nil {
			return UseResult{}, err
		}
		rec, _ := c.Store.ReadServer(name)
		return UseResult{Refcount: n, PID: rec.PID}, nil

	default: // Grace
		n, err := c.Incref(name, pid, metadata)
		if err != nil {
			return UseResult{}, err
		}
		rec, _ := c.Store.ReadServer(name)
		return UseResult{Rescued: true, Refcount: n, PID: rec.PID}, nil
	}
}

// Unuse is the idempotent-leaning wrapper around Decref used by the
// top-level `unuse` command: if the server is already in Grace (refcount
// already 0), it is treated as an already-complete detachment rather than
// an error, matching a client that races to clean up after itself.
func (c *Client) Unuse(name string, pid int) (uint32, bool, error) {
	st, err := c.Oracle.State(name)
	if err != nil {
		return 0, false, err
	}
	if st == state.Stopped {
		return 0, false, exitcodes.NotRunning(name)
	}

	n, err := c.Decref(name, pid)
	if err != nil {
		if ec, ok := err.(*exitcodes.ErrorWithCode); ok && ec.Kind == exitcodes.KindAlreadyDetached {
			return 0, true, nil
		}
		return 0, false, err
	}
	return n, false, nil
}

// Package admin implements the operator-facing operations that act
// directly on a server's process and lockfiles: stop (graceful, with
// optional force escalation), kill (immediate SIGKILL), and doctor
// (lockfile/process consistency check and repair).
package admin

import (
	"fmt"
	"syscall"
	"time"

	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/health"
	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

const (
	stopPollInterval = 100 * time.Millisecond
	stopPollAttempts = 50 // 5s total, matches the watcher's own SIGTERM grace window
	killSettleDelay  = 500 * time.Millisecond
)

// Admin wires the admin operations to one Store/Oracle pair.
type Admin struct {
	Store  *lockstore.Store
	Oracle *state.Oracle
}

// New builds an Admin.
func New(store *lockstore.Store) *Admin {
	return &Admin{Store: store, Oracle: state.NewOracle(store)}
}

func (a *Admin) cleanup(name string) {
	_ = a.Store.DeleteClients(name)
	_ = a.Store.DeleteServer(name)
}

// Stop sends SIGTERM and waits up to 5s for the server to exit, escalating
// to SIGKILL if force is set and the grace window elapses.
func (a *Admin) Stop(name string, force bool) error {
	st, err := a.Oracle.State(name)
	if err != nil {
		return err
	}
	if st == state.Stopped {
		return exitcodes.NotRunning(name)
	}

	rec, err := a.Store.ReadServer(name)
	if err != nil {
		return exitcodes.CorruptLockfile(a.Store.ServerPath(name), err)
	}

	if err := syscall.Kill(rec.PID, syscall.SIGTERM); err != nil {
		return exitcodes.ProcessErr(fmt.Sprintf("failed to send SIGTERM to pid %d", rec.PID), err)
	}

	for i := 0; i < stopPollAttempts; i++ {
		if !health.IsAlive(rec.PID) {
			a.cleanup(name)
			return nil
		}
		time.Sleep(stopPollInterval)
	}

	if !force {
		return exitcodes.StopTimeout(name)
	}

	if err := syscall.Kill(rec.PID, syscall.SIGKILL); err != nil {
		return exitcodes.KillFailed(name, err)
	}
	time.Sleep(killSettleDelay)
	if health.IsAlive(rec.PID) {
		return exitcodes.KillFailed(name, fmt.Errorf("process still alive after SIGKILL"))
	}
	a.cleanup(name)
	return nil
}

// Kill immediately SIGKILLs the server (and its watcher, if still alive)
// with no grace period, then unconditionally removes the lockfiles.
func (a *Admin) Kill(name string) error {
	st, err := a.Oracle.State(name)
	if err != nil {
		return err
	}
	if st == state.Stopped {
		return exitcodes.NotRunning(name)
	}

	rec, err := a.Store.ReadServer(name)
	if err != nil {
		return exitcodes.CorruptLockfile(a.Store.ServerPath(name), err)
	}

	if err := syscall.Kill(rec.PID, syscall.SIGKILL); err != nil && health.IsAlive(rec.PID) {
		return exitcodes.KillFailed(name, err)
	}
	time.Sleep(killSettleDelay)

	if rec.WatcherPID != nil && health.IsAlive(*rec.WatcherPID) {
		_ = syscall.Kill(*rec.WatcherPID, syscall.SIGKILL)
	}

	a.cleanup(name)
	return nil
}

// Issue describes a single inconsistency doctor found, and whether it was
// repaired.
type Issue struct {
	Description string
	Fixed       bool
}

// Report is the result of checking one server.
type Report struct {
	Name   string
	Issues []Issue
}

func (r *Report) warn(desc string) {
	r.Issues = append(r.Issues, Issue{Description: desc})
}

func (r *Report) fix(desc string) {
	r.Issues = append(r.Issues, Issue{Description: desc, Fixed: true})
}

// Doctor validates name's lockfiles against reality and repairs what it
// safely can: stale lockfiles for a dead server, a dead server PID, and
// refcount drift (rewritten to match len(clients)) are all repaired; dead
// clients are reported only, since removing them is admin decref's job and
// the watcher's sweep already races it; a dead watcher is reported only (it
// may simply have exited after finishing its job).
func (a *Admin) Doctor(name string) (Report, error) {
	report := Report{Name: name}

	st, err := a.Oracle.State(name)
	if err != nil {
		return report, err
	}

	if st == state.Stopped {
		hasServer := a.Store.ServerExists(name)
		hasClients := a.Store.ClientsExists(name)
		if hasServer || hasClients {
			report.warn(fmt.Sprintf("server is stopped but lockfiles exist (server=%v, clients=%v)", hasServer, hasClients))
			if hasServer {
				if err := a.Store.DeleteServer(name); err != nil {
					report.warn("failed to remove stale server lockfile: " + err.Error())
				} else {
					report.fix("Removed stale server lockfile")
				}
			}
			if hasClients {
				if err := a.Store.DeleteClients(name); err != nil {
					report.warn("failed to remove stale clients lockfile: " + err.Error())
				} else {
					report.fix("removed stale clients lockfile")
				}
			}
		}
		return report, nil
	}

	rec, err := a.Store.ReadServer(name)
	if err != nil {
		report.warn("failed to read server lockfile: " + err.Error())
		return report, nil
	}

	if !health.IsAlive(rec.PID) {
		report.warn(fmt.Sprintf("server process %d is not running but lockfile exists", rec.PID))
		if err := a.Store.DeleteServer(name); err != nil {
			report.warn("failed to remove stale server lockfile: " + err.Error())
		} else {
			report.fix("Removed stale server lockfile")
		}
		if err := a.Store.DeleteClients(name); err != nil {
			report.warn("failed to remove stale clients lockfile: " + err.Error())
		} else {
			report.fix("removed stale clients lockfile")
		}
		return report, nil
	}

	if rec.WatcherPID != nil && !health.IsAlive(*rec.WatcherPID) {
		report.warn(fmt.Sprintf("watcher process %d is not running", *rec.WatcherPID))
	}

	if st == state.Active {
		clients, err := a.Store.ReadClients(name)
		if err != nil {
			report.warn("server is Active but clients lockfile is missing or unreadable")
			return report, nil
		}

		var dead []int
		for pid := range clients.Clients {
			if !health.IsAlive(pid) {
				dead = append(dead, pid)
			}
		}
		if len(dead) > 0 {
			report.warn(fmt.Sprintf("found %d dead client(s), will be swept by the watcher or may be removed via admin decref", len(dead)))
		}

		if clients.Refcount != uint32(len(clients.Clients)) {
			report.warn(fmt.Sprintf("refcount mismatch: refcount=%d, actual clients=%d", clients.Refcount, len(clients.Clients)))
			clients.Refcount = uint32(len(clients.Clients))
			if err := a.Store.WriteClients(name, clients); err != nil {
				report.warn("failed to repair refcount: " + err.Error())
			} else {
				report.fix(fmt.Sprintf("repaired refcount to %d", clients.Refcount))
			}
		}
		if clients.Refcount == 0 && len(clients.Clients) == 0 {
			report.warn("server is Active but has no clients (should be in Grace)")
		}
	} else { // Grace
		if a.Store.ClientsExists(name) {
			if clients, err := a.Store.ReadClients(name); err == nil {
				if clients.Refcount > 0 || len(clients.Clients) > 0 {
					report.warn(fmt.Sprintf("server is in Grace but has clients (refcount=%d, clients=%d)", clients.Refcount, len(clients.Clients)))
				}
			}
		}
	}

	return report, nil
}

// DoctorAll runs Doctor over every known server, in sorted order.
func (a *Admin) DoctorAll() ([]Report, error) {
	names, err := a.Store.Names()
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(names))
	for _, name := range names {
		r, err := a.Doctor(name)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

package admin

import (
	"os"
	"testing"

	"github.com/georgeharker/sharedserver/internal/lockstore"
)

func newTestAdmin(t *testing.T) *Admin {
	t.Helper()
	return New(&lockstore.Store{Dir: t.TempDir()})
}

func TestStopNotRunning(t *testing.T) {
	a := newTestAdmin(t)
	if err := a.Stop("nope", false); err == nil {
		t.Fatal("expected NotRunning error")
	}
}

func TestKillNotRunning(t *testing.T) {
	a := newTestAdmin(t)
	if err := a.Kill("nope"); err == nil {
		t.Fatal("expected NotRunning error")
	}
}

func TestDoctorOnCleanStoppedServerReportsNoIssues(t *testing.T) {
	a := newTestAdmin(t)
	report, err := a.Doctor("srv")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected no issues for a server with no lockfiles, got %+v", report.Issues)
	}
}

func TestDoctorCleansStaleLockfilesOnStoppedServer(t *testing.T) {
	a := newTestAdmin(t)
	// A dead PID with no process behind it: leaves a stale server lockfile
	// even though the process that held it is gone.
	deadPID := 1 << 30
	if err := a.Store.WriteServer("srv", lockstore.ServerRecord{PID: deadPID}); err != nil {
		t.Fatal(err)
	}
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 1
	rec.Clients[deadPID] = lockstore.ClientInfo{}
	if err := a.Store.WriteClients("srv", rec); err != nil {
		t.Fatal(err)
	}

	report, err := a.Doctor("srv")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Issues) == 0 {
		t.Fatal("expected at least one issue for a stale lockfile set")
	}
	var fixedAny bool
	for _, issue := range report.Issues {
		if issue.Fixed {
			fixedAny = true
		}
	}
	if !fixedAny {
		t.Error("expected doctor to repair at least one stale lockfile")
	}
	if a.Store.ServerExists("srv") || a.Store.ClientsExists("srv") {
		t.Error("expected both lockfiles to be removed")
	}
}

func TestDoctorOnHealthyActiveServerReportsNoIssues(t *testing.T) {
	a := newTestAdmin(t)
	if err := a.Store.WriteServer("srv", lockstore.ServerRecord{PID: os.Getpid()}); err != nil {
		t.Fatal(err)
	}
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 1
	rec.Clients[os.Getpid()] = lockstore.ClientInfo{}
	if err := a.Store.WriteClients("srv", rec); err != nil {
		t.Fatal(err)
	}

	report, err := a.Doctor("srv")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected no issues for a consistent Active server, got %+v", report.Issues)
	}
}

func TestDoctorDetectsRefcountMismatch(t *testing.T) {
	a := newTestAdmin(t)
	if err := a.Store.WriteServer("srv", lockstore.ServerRecord{PID: os.Getpid()}); err != nil {
		t.Fatal(err)
	}
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 5 // deliberately wrong
	rec.Clients[os.Getpid()] = lockstore.ClientInfo{}
	if err := a.Store.WriteClients("srv", rec); err != nil {
		t.Fatal(err)
	}

	report, err := a.Doctor("srv")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Issues) == 0 {
		t.Fatal("expected a refcount mismatch issue")
	}

	fixed, err := a.Store.ReadClients("srv")
	if err != nil {
		t.Fatal(err)
	}
	if fixed.Refcount != uint32(len(fixed.Clients)) {
		t.Errorf("expected Doctor to repair refcount to %d, got %d", len(fixed.Clients), fixed.Refcount)
	}
}

func TestDoctorAllScansEveryServer(t *testing.T) {
	a := newTestAdmin(t)
	if err := a.Store.WriteServer("one", lockstore.ServerRecord{PID: os.Getpid()}); err != nil {
		t.Fatal(err)
	}
	if err := a.Store.WriteServer("two", lockstore.ServerRecord{PID: os.Getpid()}); err != nil {
		t.Fatal(err)
	}

	reports, err := a.DoctorAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
}

package registry

import (
	"os"
	"testing"
	"time"

	"github.com/georgeharker/sharedserver/internal/lockstore"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(&lockstore.Store{Dir: t.TempDir()})
}

func TestListEmptyDirReturnsEmpty(t *testing.T) {
	r := newTestRegistry(t)
	summaries, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %+v", summaries)
	}
}

func TestListSkipsStoppedServers(t *testing.T) {
	r := newTestRegistry(t)
	// A dead PID: the server is Stopped even though a lockfile exists.
	if err := r.Store.WriteServer("dead", lockstore.ServerRecord{PID: 1 << 30}); err != nil {
		t.Fatal(err)
	}

	summaries, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected stopped servers to be skipped, got %+v", summaries)
	}
}

func TestListReturnsSortedActiveAndGraceServers(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Store.WriteServer("zeta", lockstore.ServerRecord{PID: os.Getpid(), StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 1
	rec.Clients[os.Getpid()] = lockstore.ClientInfo{}
	if err := r.Store.WriteClients("zeta", rec); err != nil {
		t.Fatal(err)
	}

	if err := r.Store.WriteServer("alpha", lockstore.ServerRecord{PID: os.Getpid(), StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	summaries, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Name != "alpha" || summaries[1].Name != "zeta" {
		t.Errorf("expected sorted [alpha, zeta], got [%s, %s]", summaries[0].Name, summaries[1].Name)
	}
	if summaries[1].Refcount != 1 {
		t.Errorf("expected zeta refcount 1, got %d", summaries[1].Refcount)
	}
}

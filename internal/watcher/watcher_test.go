package watcher

import (
	"os"
	"testing"
	"time"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/rs/zerolog"
)

func newTestWatcher(t *testing.T) (*Watcher, *lockstore.Store) {
	t.Helper()
	store := &lockstore.Store{Dir: t.TempDir()}
	w := New(store, "srv", os.Getpid(), time.Minute, zerolog.Nop())
	return w, store
}

func TestSweepRemovesDeadClientsAndKeepsAlive(t *testing.T) {
	w, store := newTestWatcher(t)
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 2
	rec.Clients[os.Getpid()] = lockstore.ClientInfo{}
	rec.Clients[1<<30] = lockstore.ClientInfo{} // implausible, presumed dead
	if err := store.WriteClients("srv", rec); err != nil {
		t.Fatal(err)
	}

	hasClients := w.sweepDeadClients()
	if !hasClients {
		t.Fatal("expected the live client to keep hasClients true")
	}

	got, err := store.ReadClients("srv")
	if err != nil {
		t.Fatal(err)
	}
	if got.Refcount != 1 {
		t.Errorf("refcount = %d, want 1 after sweeping one dead client", got.Refcount)
	}
	if _, ok := got.Clients[os.Getpid()]; !ok {
		t.Error("expected live client to remain")
	}
}

func TestSweepDeletesFileWhenAllClientsDead(t *testing.T) {
	w, store := newTestWatcher(t)
	rec := lockstore.NewClientsRecord()
	rec.Refcount = 1
	rec.Clients[1<<30] = lockstore.ClientInfo{}
	if err := store.WriteClients("srv", rec); err != nil {
		t.Fatal(err)
	}

	hasClients := w.sweepDeadClients()
	if hasClients {
		t.Fatal("expected no clients to remain")
	}
	if store.ClientsExists("srv") {
		t.Error("expected clients file to be deleted once refcount reaches 0")
	}
}

func TestSweepNoOpWhenClientsFileAbsent(t *testing.T) {
	w, _ := newTestWatcher(t)
	if w.sweepDeadClients() {
		t.Fatal("expected false when there is no clients file")
	}
}

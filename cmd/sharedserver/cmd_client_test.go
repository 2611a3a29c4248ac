package main

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/georgeharker/sharedserver/internal/lockstore"
)

func seedActiveServer(t *testing.T, dir, name string, clientPID int) *lockstore.Store {
	t.Helper()
	store := &lockstore.Store{Dir: dir}
	rec := lockstore.ServerRecord{PID: os.Getpid(), Command: []string{"sleep", "600"}, GracePeriod: "5m", StartedAt: time.Now().UTC()}
	if err := store.WriteServer(name, rec); err != nil {
		t.Fatal(err)
	}
	clients := lockstore.NewClientsRecord()
	clients.Refcount = 1
	clients.Clients[clientPID] = lockstore.ClientInfo{AttachedAt: time.Now().UTC()}
	if err := store.WriteClients(name, clients); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRunUseAttachesToActiveServer(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHAREDSERVER_LOCKDIR", dir)
	seedActiveServer(t, dir, "srv", 999999)

	origOutput, origPID := flagOutput, usePID
	flagOutput, usePID = "json", 123456
	defer func() { flagOutput, usePID = origOutput, origPID }()

	out := captureStdout(t, func() {
		if err := runUse(useCmd, []string{"srv"}); err != nil {
			t.Fatalf("runUse: %v", err)
		}
	})
	if !strings.Contains(out, `"refcount": 2`) {
		t.Errorf("expected refcount 2 after attaching a second client, got %s", out)
	}
}

func TestRunUseOnStoppedWithoutCommandFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHAREDSERVER_LOCKDIR", dir)

	origOutput, origPID := flagOutput, usePID
	flagOutput, usePID = "text", 123456
	defer func() { flagOutput, usePID = origOutput, origPID }()

	captureStdout(t, func() {
		if err := runUse(useCmd, []string{"srv"}); err == nil {
			t.Fatal("expected an error for a stopped server with no command")
		}
	})
}

func TestRunUnuseOnActiveServerDecrements(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHAREDSERVER_LOCKDIR", dir)
	store := seedActiveServer(t, dir, "srv", 4242)
	clients, err := store.ReadClients("srv")
	if err != nil {
		t.Fatal(err)
	}
	clients.Clients[55] = lockstore.ClientInfo{AttachedAt: time.Now().UTC()}
	clients.Refcount = 2
	if err := store.WriteClients("srv", clients); err != nil {
		t.Fatal(err)
	}

	origOutput, origPID := flagOutput, unusePID
	flagOutput, unusePID = "json", 55
	defer func() { flagOutput, unusePID = origOutput, origPID }()

	out := captureStdout(t, func() {
		if err := runUnuse(unuseCmd, []string{"srv"}); err != nil {
			t.Fatalf("runUnuse: %v", err)
		}
	})
	if !strings.Contains(out, `"refcount": 1`) {
		t.Errorf("expected refcount 1 after detaching one of two clients, got %s", out)
	}
}

func TestRunUnuseNotRunningFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHAREDSERVER_LOCKDIR", dir)

	origOutput, origPID := flagOutput, unusePID
	flagOutput, unusePID = "text", 1
	defer func() { flagOutput, unusePID = origOutput, origPID }()

	captureStdout(t, func() {
		if err := runUnuse(unuseCmd, []string{"nope"}); err == nil {
			t.Fatal("expected an error when the server is not running")
		}
	})
}

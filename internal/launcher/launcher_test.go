package launcher

import (
	"os"
	"testing"
	"time"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

// TestMain intercepts re-executions of this test binary spawned by Start()
// during TestStartHandsOffToWatcher: when invoked with the env var below
// set, it behaves as a minimal stand-in for "__watcher-exec" (installing
// real PIDs into the server record) instead of running the test suite.
// This mirrors the re-exec helper-process pattern from the standard
// library's own os/exec tests.
func TestMain(m *testing.M) {
	if os.Getenv("SHAREDSERVER_TEST_WATCHER_HELPER") == "1" {
		runHelperWatcher()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runHelperWatcher stands in for RunWatcherExec just long enough to
// satisfy Launcher.awaitHandoff: it installs its own PID as both server
// and watcher PID, then blocks briefly so the parent's assertions about
// its liveness have time to run before it exits.
func runHelperWatcher() {
	if len(os.Args) < 3 {
		return
	}
	name := os.Args[2]
	store, err := lockstore.New()
	if err != nil {
		return
	}
	rec, err := store.ReadServer(name)
	if err != nil {
		return
	}
	pid := os.Getpid()
	rec.PID = pid
	rec.WatcherPID = &pid
	_ = store.WriteServer(name, rec)
	time.Sleep(200 * time.Millisecond)
}

func newTestLauncher(t *testing.T) (*Launcher, *lockstore.Store) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SHAREDSERVER_LOCKDIR", dir)
	store := &lockstore.Store{Dir: dir}
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	return &Launcher{Store: store, Oracle: state.NewOracle(store), BinPath: self}, store
}

func TestValidateEnvAcceptsKeyValue(t *testing.T) {
	if err := ValidateEnv([]string{"FOO=bar", "BAZ="}); err != nil {
		t.Errorf("expected valid env to pass, got %v", err)
	}
}

func TestValidateEnvRejectsMalformed(t *testing.T) {
	if err := ValidateEnv([]string{"NOVALUE"}); err == nil {
		t.Error("expected malformed env entry to fail validation")
	}
}

func TestStartRejectsInvalidGracePeriod(t *testing.T) {
	l, _ := newTestLauncher(t)
	_, err := l.Start(StartOpts{Name: "srv", Command: []string{"sleep", "1"}, GracePeriod: "not-a-duration"})
	if err == nil {
		t.Fatal("expected invalid grace period to be rejected")
	}
}

func TestStartRejectsEmptyCommand(t *testing.T) {
	l, _ := newTestLauncher(t)
	_, err := l.Start(StartOpts{Name: "srv", GracePeriod: "5m"})
	if err == nil {
		t.Fatal("expected empty command to be rejected")
	}
}

func TestStartRejectsAlreadyActive(t *testing.T) {
	l, store := newTestLauncher(t)
	rec := lockstore.ServerRecord{PID: os.Getpid(), Command: []string{"sleep", "600"}, GracePeriod: "5m", StartedAt: time.Now().UTC()}
	if err := store.WriteServer("srv", rec); err != nil {
		t.Fatal(err)
	}
	clients := lockstore.NewClientsRecord()
	clients.Refcount = 1
	clients.Clients[os.Getpid()] = lockstore.ClientInfo{AttachedAt: time.Now().UTC()}
	if err := store.WriteClients("srv", clients); err != nil {
		t.Fatal(err)
	}

	_, err := l.Start(StartOpts{Name: "srv", Command: []string{"sleep", "600"}, GracePeriod: "5m"})
	if err == nil {
		t.Fatal("expected AlreadyRunning error for an active server")
	}
}

func TestStartHandsOffToWatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	l, _ := newTestLauncher(t)

	origEnv := os.Getenv("SHAREDSERVER_TEST_WATCHER_HELPER")
	os.Setenv("SHAREDSERVER_TEST_WATCHER_HELPER", "1")
	defer os.Setenv("SHAREDSERVER_TEST_WATCHER_HELPER", origEnv)

	rec, err := l.Start(StartOpts{Name: "srv", Command: []string{"true"}, GracePeriod: "5m"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.WatcherPID == nil {
		t.Fatal("expected watcher pid to be installed after handoff")
	}
	if rec.PID != *rec.WatcherPID {
		t.Errorf("expected helper to install its own pid as both server and watcher pid, got pid=%d watcher=%d", rec.PID, *rec.WatcherPID)
	}
}

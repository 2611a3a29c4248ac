// Package launcher implements the supervision launcher: the double-fork
// protocol that starts a server under a dedicated watcher process,
// described by the supervisor's design as a three-level process tree
// (CLI invocation, watcher, server).
//
// Go cannot safely fork() without exec() once the runtime has started
// extra OS threads, so the fork/fork/exec sequence used by the original
// implementation is translated into two os/exec spawns of the current
// binary's own hidden "__watcher-exec" subcommand:
//
//  1. This process (the CLI invocation) writes a placeholder server
//     record, then execs a copy of itself as "__watcher-exec NAME" with
//     Setsid set — the kernel performs the session-detach (the
//     fork-then-setsid step) before that process's main() ever runs.
//  2. That process (RunWatcherExec) becomes the watcher: it execs the
//     real server command as an ordinary child (no Setsid — it stays in
//     the watcher's session so the watcher can signal it directly by
//     PID), rewrites the server record with the real server and watcher
//     PIDs, and then runs the watcher loop until the server dies.
//
// The net external process tree and lockfile handoff protocol matches the
// original double-fork design; only the mechanism for creating the first
// new process differs.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/georgeharker/sharedserver/internal/duration"
	"github.com/georgeharker/sharedserver/internal/exitcodes"
	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/logging"
	"github.com/georgeharker/sharedserver/internal/state"
	"github.com/georgeharker/sharedserver/internal/watcher"
)

const (
	handoffPoll    = 50 * time.Millisecond
	handoffTimeout = 2 * time.Second
)

// StartOpts describes one launch request. ClientPID of 0 means
// start-only: no clients record is created and the server enters Grace
// immediately after the watcher installs it.
type StartOpts struct {
	Name        string
	Command     []string
	GracePeriod string
	Env         []string
	LogFile     string
	ClientPID   int
	Metadata    string
}

// Launcher spawns servers under Store's lock directory, re-executing
// BinPath (defaulting to the running executable) as the watcher.
type Launcher struct {
	Store   *lockstore.Store
	Oracle  *state.Oracle
	BinPath string
}

// New builds a Launcher. binPath may be empty to resolve os.Executable().
func New(store *lockstore.Store, binPath string) *Launcher {
	return &Launcher{Store: store, Oracle: state.NewOracle(store), BinPath: binPath}
}

func (l *Launcher) selfPath() (string, error) {
	if l.BinPath != "" {
		return l.BinPath, nil
	}
	return os.Executable()
}

// Start runs the full precondition-check, lockfile-write, and double-fork
// handoff sequence, returning the final server record once the watcher
// has installed real PIDs.
func (l *Launcher) Start(opts StartOpts) (lockstore.ServerRecord, error) {
	var zero lockstore.ServerRecord

	if _, err := duration.Parse(opts.GracePeriod); err != nil {
		return zero, exitcodes.InvalidDuration(opts.GracePeriod, err)
	}
	if len(opts.Command) == 0 {
		return zero, exitcodes.InvalidArgv("server command cannot be empty")
	}

	st, err := l.Oracle.State(opts.Name)
	if err != nil {
		return zero, err
	}
	switch st {
	case state.Active, state.Grace:
		rec, _ := l.Store.ReadServer(opts.Name)
		return zero, exitcodes.AlreadyRunning(opts.Name, rec.PID, st.String())
	case state.Stopped:
		if l.Store.ServerExists(opts.Name) {
			// Stale lock: the recorded PID is dead. Warn and clean up
			// before proceeding, mirroring the original start command's
			// "Cleaning up stale lock" behavior.
			fmt.Fprintf(os.Stderr, "Warning: cleaning up stale lock for server %q\n", opts.Name)
			_ = l.Store.DeleteServer(opts.Name)
			_ = l.Store.DeleteClients(opts.Name)
		}
	}

	placeholder := lockstore.ServerRecord{
		PID:         os.Getpid(),
		Command:     opts.Command,
		GracePeriod: opts.GracePeriod,
		StartedAt:   time.Now().UTC(),
		LogFile:     opts.LogFile,
		Env:         opts.Env,
	}
	if err := l.Store.WriteServer(opts.Name, placeholder); err != nil {
		return zero, exitcodes.IOErr(l.Store.ServerPath(opts.Name), err)
	}

	if opts.ClientPID != 0 {
		clients := lockstore.NewClientsRecord()
		clients.Refcount = 1
		clients.Clients[opts.ClientPID] = lockstore.ClientInfo{
			AttachedAt: time.Now().UTC(),
			Metadata:   opts.Metadata,
		}
		if err := l.Store.WriteClients(opts.Name, clients); err != nil {
			_ = l.Store.DeleteServer(opts.Name)
			return zero, exitcodes.IOErr(l.Store.ClientsPath(opts.Name), err)
		}
	}

	self, err := l.selfPath()
	if err != nil {
		l.cleanup(opts.Name)
		return zero, exitcodes.ProcessErr("resolve own executable path", err)
	}

	cmd := exec.Command(self, "__watcher-exec", opts.Name)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		l.cleanup(opts.Name)
		return zero, exitcodes.ProcessErr("failed to fork watcher", err)
	}
	// The watcher process is intentionally not Wait()'d: once this short-
	// lived CLI invocation exits, responsibility for reaping it passes to
	// init, exactly as it would for a forked-and-orphaned process.
	_ = cmd.Process.Release()

	return l.awaitHandoff(opts.Name)
}

func (l *Launcher) awaitHandoff(name string) (lockstore.ServerRecord, error) {
	deadline := time.Now().Add(handoffTimeout)
	for {
		rec, err := l.Store.ReadServer(name)
		if err == nil && rec.WatcherPID != nil && rec.PID != os.Getpid() {
			return rec, nil
		}
		if time.Now().After(deadline) {
			l.cleanup(name)
			return lockstore.ServerRecord{}, exitcodes.StartTimeout(name)
		}
		time.Sleep(handoffPoll)
	}
}

func (l *Launcher) cleanup(name string) {
	_ = l.Store.DeleteServer(name)
	_ = l.Store.DeleteClients(name)
}

// RunWatcherExec is the hidden "__watcher-exec" entry point. It execs the
// recorded server command, installs the real PIDs into the server record,
// and runs the watcher loop until the server terminates. It returns only
// once supervision has ended (normal exit, killed on grace expiry, or a
// fatal setup error) so the caller (the hidden subcommand) can exit with
// the returned code.
func RunWatcherExec(store *lockstore.Store, name string) int {
	rec, err := store.ReadServer(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: failed to read server lock for %q: %v\n", name, err)
		_ = store.DeleteServer(name)
		_ = store.DeleteClients(name)
		return 1
	}

	logFile, _ := logging.OpenLogFile(rec.LogFile)
	var logDest *os.File = logFile
	if logDest != nil {
		defer logDest.Close()
	}
	log := logging.New("watcher", logDest)

	if len(rec.Command) == 0 {
		log.Error().Msg("server command is empty")
		_ = store.DeleteServer(name)
		_ = store.DeleteClients(name)
		return 1
	}

	serverCmd := exec.Command(rec.Command[0], rec.Command[1:]...)
	serverCmd.Env = append(os.Environ(), rec.Env...)
	if devnull, err := os.Open(os.DevNull); err == nil {
		serverCmd.Stdin = devnull
		defer devnull.Close()
	}
	if logDest != nil {
		serverCmd.Stdout = logDest
		serverCmd.Stderr = logDest
	}

	if err := serverCmd.Start(); err != nil {
		log.Error().Err(err).Strs("command", rec.Command).Msg("failed to exec server")
		_ = store.DeleteServer(name)
		_ = store.DeleteClients(name)
		return 1
	}

	// Reap the server child ourselves once it exits, rather than letting
	// it become a zombie under the watcher — the watcher has no other
	// children.
	go func() {
		_ = serverCmd.Wait()
	}()

	watcherPID := os.Getpid()
	rec.PID = serverCmd.Process.Pid
	rec.WatcherPID = &watcherPID
	if err := store.WriteServer(name, rec); err != nil {
		log.Error().Err(err).Msg("failed to install real PIDs into server lock")
		_ = serverCmd.Process.Kill()
		_ = store.DeleteServer(name)
		_ = store.DeleteClients(name)
		return 1
	}

	grace, err := duration.Parse(rec.GracePeriod)
	if err != nil {
		log.Error().Err(err).Str("grace_period", rec.GracePeriod).Msg("invalid grace period, defaulting")
		grace = 5 * time.Minute
	}

	w := watcher.New(store, name, rec.PID, grace, log)
	w.Run()
	return 0
}

// parseEnv splits one "KEY=VALUE" entry at its first '='. ValidateEnv runs
// it over Env built from repeated flags, so malformed entries fail fast
// at the CLI layer rather than silently being dropped at exec time.
func parseEnv(kv string) (string, string, error) {
	idx := strings.IndexByte(kv, '=')
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid --env value %q, expected KEY=VALUE", kv)
	}
	return kv[:idx], kv[idx+1:], nil
}

// ValidateEnv checks that every entry in env parses as KEY=VALUE.
func ValidateEnv(env []string) error {
	for _, kv := range env {
		if _, _, err := parseEnv(kv); err != nil {
			return err
		}
	}
	return nil
}

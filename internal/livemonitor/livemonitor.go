// Package livemonitor implements the interactive `admin debug` view: a
// read-only terminal dashboard that polls one server's lockfiles and
// renders its current state, following the teacher's charm-stack
// dashboard architecture (bubbletea model, lipgloss styling) scaled down
// to a single panel, plus a background log tail of the server's
// --log-file when one was configured at start time.
package livemonitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cespare/xxhash/v2"
	"github.com/nxadm/tail"

	"github.com/georgeharker/sharedserver/internal/lockstore"
	"github.com/georgeharker/sharedserver/internal/state"
)

// logPaneLines caps how many recent lines of the server's captured
// stdout/stderr are shown beneath the state panel.
const logPaneLines = 8

// logFollower tails a server's --log-file in the background, matching the
// nxadm/tail-based follow loop the teacher's standalone log viewer used,
// but feeding a bounded buffer that the bubbletea render loop polls rather
// than driving its own raw-terminal event loop.
type logFollower struct {
	mu      sync.Mutex
	lines   []string
	err     error
	started bool
}

func (lf *logFollower) start(path string) {
	lf.mu.Lock()
	if lf.started {
		lf.mu.Unlock()
		return
	}
	lf.started = true
	lf.mu.Unlock()

	go func() {
		t, err := tail.TailFile(path, tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: false,
			Poll:      false,
		})
		if err != nil {
			lf.mu.Lock()
			lf.err = err
			lf.mu.Unlock()
			return
		}
		defer t.Cleanup()

		for line := range t.Lines {
			lf.mu.Lock()
			if line.Err != nil {
				lf.err = line.Err
				lf.mu.Unlock()
				return
			}
			lf.lines = append(lf.lines, line.Text)
			if len(lf.lines) > logPaneLines {
				lf.lines = lf.lines[len(lf.lines)-logPaneLines:]
			}
			lf.mu.Unlock()
		}
	}()
}

func (lf *logFollower) snapshot() ([]string, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	out := make([]string, len(lf.lines))
	copy(out, lf.lines)
	return out, lf.err
}

// pollInterval is how often the view re-reads the lockfiles; it is finer
// than the watcher's own 5-second poll, so the view never lags the files
// by more than a second.
const pollInterval = time.Second

var (
	badgeActive  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	badgeGrace   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	badgeStopped = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderCache avoids recomputing an identical frame string, mirroring the
// teacher dashboard's hash-based component cache.
type renderCache struct {
	lastHash uint64
	cached   string
}

func (c *renderCache) render(content string) string {
	h := xxhash.Sum64String(content)
	if h == c.lastHash && c.cached != "" {
		return c.cached
	}
	c.lastHash = h
	c.cached = content
	return content
}

type snapshot struct {
	name    string
	st      state.ServerState
	server  lockstore.ServerRecord
	clients lockstore.ClientsRecord
	hasRec  bool
	err     error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model behind `admin debug NAME`.
type Model struct {
	store  *lockstore.Store
	oracle *state.Oracle
	name   string
	cache  renderCache
	snap   snapshot
	log    *logFollower
}

// New builds a Model for monitoring name.
func New(store *lockstore.Store, name string) Model {
	return Model{store: store, oracle: state.NewOracle(store), name: name, log: &logFollower{}}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.fetchCmd())
}

func (m Model) fetchCmd() tea.Cmd {
	store, oracle, name := m.store, m.oracle, m.name
	return func() tea.Msg {
		st, err := oracle.State(name)
		if err != nil {
			return snapshot{name: name, err: err}
		}
		snap := snapshot{name: name, st: st}
		if st != state.Stopped {
			if rec, err := store.ReadServer(name); err == nil {
				snap.server = rec
				snap.hasRec = true
			}
		}
		if st == state.Active {
			if clients, err := store.ReadClients(name); err == nil {
				snap.clients = clients
			}
		}
		return snap
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		return m, tea.Batch(tick(), m.fetchCmd())
	case snapshot:
		m.snap = msg
		if m.snap.hasRec && m.snap.server.LogFile != "" {
			m.log.start(m.snap.server.LogFile)
		}
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return m.cache.render(m.render())
}

func (m Model) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("sharedserver debug: "+m.snap.name))

	if m.snap.err != nil {
		fmt.Fprintf(&b, "error: %v\n", m.snap.err)
		b.WriteString(dimStyle.Render("\npress q to quit"))
		return b.String()
	}

	fmt.Fprintf(&b, "state: %s\n", badgeFor(m.snap.st))

	if m.snap.hasRec {
		uptime := time.Since(m.snap.server.StartedAt).Round(time.Second)
		fmt.Fprintf(&b, "pid: %d    uptime: %s\n", m.snap.server.PID, uptime)
		if m.snap.server.WatcherPID != nil {
			fmt.Fprintf(&b, "watcher pid: %d\n", *m.snap.server.WatcherPID)
		}
	}

	switch m.snap.st {
	case state.Active:
		fmt.Fprintf(&b, "\nrefcount: %d\n", m.snap.clients.Refcount)
		for pid, info := range m.snap.clients.Clients {
			age := time.Since(info.AttachedAt).Round(time.Second)
			fmt.Fprintf(&b, "  client %d  attached %s ago", pid, age)
			if info.Metadata != "" {
				fmt.Fprintf(&b, "  (%s)", info.Metadata)
			}
			b.WriteString("\n")
		}
	case state.Grace:
		remaining := graceRemaining(m.snap.server)
		fmt.Fprintf(&b, "\n%s\n", badgeGrace.Render(fmt.Sprintf("grace period: %s (configured)", remaining)))
	}

	if m.snap.hasRec && m.snap.server.LogFile != "" {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("log tail"))
		lines, err := m.log.snapshot()
		switch {
		case err != nil:
			fmt.Fprintf(&b, "  (tail error: %v)\n", err)
		case len(lines) == 0:
			b.WriteString(dimStyle.Render("  (no output yet)\n"))
		default:
			for _, line := range lines {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	b.WriteString(dimStyle.Render("\npress q to quit"))
	return b.String()
}

func badgeFor(st state.ServerState) string {
	switch st {
	case state.Active:
		return badgeActive.Render("ACTIVE")
	case state.Grace:
		return badgeGrace.Render("GRACE")
	default:
		return badgeStopped.Render("STOPPED")
	}
}

// graceRemaining returns the server's configured grace period, not the time
// left in it: when the grace period began is held only by the watcher, so
// this read-only view shows no countdown.
func graceRemaining(rec lockstore.ServerRecord) string {
	grace, err := time.ParseDuration(rec.GracePeriod)
	if err != nil || grace <= 0 {
		return "unknown"
	}
	return grace.String()
}

// Run launches the interactive debug view and blocks until the user
// quits. It never mutates any lockfile.
func Run(store *lockstore.Store, name string) error {
	p := tea.NewProgram(New(store, name), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

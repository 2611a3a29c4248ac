// Package lockstore implements atomic, advisory-locked access to the two
// per-server JSON files that make up the supervisor's entire persistent
// state: NAME.server.json and NAME.clients.json. There is no daemon and no
// database — these files, plus OS process liveness, are the only source
// of truth, so every mutation goes through a locked critical section that
// is automatically released if the holding process dies.
package lockstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// ServerRecord is the contents of NAME.server.json.
type ServerRecord struct {
	PID         int       `json:"pid"`
	Command     []string  `json:"command"`
	GracePeriod string    `json:"grace_period"`
	WatcherPID  *int      `json:"watcher_pid,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	LogFile     string    `json:"log_file,omitempty"`
	Env         []string  `json:"env,omitempty"`
}

// ClientInfo describes one attached client inside a ClientsRecord.
type ClientInfo struct {
	AttachedAt time.Time `json:"attached_at"`
	Metadata   string    `json:"metadata,omitempty"`
}

// ClientsRecord is the contents of NAME.clients.json. Its mere presence on
// disk is what distinguishes the Active state from Grace.
type ClientsRecord struct {
	Refcount uint32             `json:"refcount"`
	Clients  map[int]ClientInfo `json:"clients"`
}

// NewClientsRecord returns an empty, ready-to-populate ClientsRecord.
func NewClientsRecord() ClientsRecord {
	return ClientsRecord{Clients: make(map[int]ClientInfo)}
}

// Store resolves and manipulates the lockfile pair for any number of
// named servers rooted at one lock directory.
type Store struct {
	Dir string
}

// ResolveDir implements the directory resolution order from the
// supervisor's external interface: $SHAREDSERVER_LOCKDIR, else
// $XDG_RUNTIME_DIR/sharedserver, else /tmp/sharedserver. The directory is
// created on demand with mode 0700.
func ResolveDir() (string, error) {
	dir := os.Getenv("SHAREDSERVER_LOCKDIR")
	if dir == "" {
		if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
			dir = filepath.Join(xdg, "sharedserver")
		} else {
			dir = filepath.Join("/tmp", "sharedserver")
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create lock directory %s: %w", dir, err)
	}
	return dir, nil
}

// New resolves the lock directory and returns a Store rooted there.
func New() (*Store, error) {
	dir, err := ResolveDir()
	if err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) serverPath(name string) string {
	return filepath.Join(s.Dir, name+".server.json")
}

func (s *Store) clientsPath(name string) string {
	return filepath.Join(s.Dir, name+".clients.json")
}

// ServerPath returns the path of name's server lockfile.
func (s *Store) ServerPath(name string) string { return s.serverPath(name) }

// ClientsPath returns the path of name's clients lockfile.
func (s *Store) ClientsPath(name string) string { return s.clientsPath(name) }

// ServerExists reports whether name's server lockfile is present.
func (s *Store) ServerExists(name string) bool {
	_, err := os.Stat(s.serverPath(name))
	return err == nil
}

// ClientsExists reports whether name's clients lockfile is present.
func (s *Store) ClientsExists(name string) bool {
	_, err := os.Stat(s.clientsPath(name))
	return err == nil
}

// WithExclusive opens path (creating it if absent), acquires an advisory
// exclusive lock, invokes fn with the open file positioned at the start,
// and releases the lock on every exit path — including if fn panics.
//
// The lock is taken on a dedicated flock handle rather than the content
// file descriptor itself: gofrs/flock manages its own fd for the lock
// call, while fn reads/writes through a second, ordinary *os.File opened
// on the same path. Holding the advisory lock for the whole critical
// section still serializes all callers across processes; only the holder
// ever has the content fd open at the same time.
func (s *Store) WithExclusive(path string, fn func(*os.File) error) error {
	return withLock(path, true, fn)
}

// WithShared is WithExclusive's read-only counterpart, used only by the
// dead-client sweep's cheap first phase (see internal/watcher).
func (s *Store) WithShared(path string, fn func(*os.File) error) error {
	return withLock(path, false, fn)
}

func withLock(path string, exclusive bool, fn func(*os.File) error) error {
	fl := flock.New(path)
	var locked bool
	var err error
	if exclusive {
		locked, err = true, fl.Lock()
	} else {
		locked, err = true, fl.RLock()
	}
	if err != nil {
		return fmt.Errorf("acquire lock on %s: %w", path, err)
	}
	defer func() {
		if locked {
			_ = fl.Unlock()
		}
	}()

	flags := os.O_RDWR | os.O_CREATE
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return fn(file)
}

// readJSON seeks to the start of file and decodes its full contents,
// failing loudly on empty content rather than returning a zero value.
func readJSON(file *os.File, v interface{}) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	if len(trimSpace(data)) == 0 {
		return fmt.Errorf("lockfile %s is empty", file.Name())
	}
	return json.Unmarshal(data, v)
}

// writeJSON truncates file to zero length, writes pretty-printed JSON from
// the start, and forces it to disk before returning.
func writeJSON(file *os.File, v interface{}) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := file.Truncate(0); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Sync()
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	isSpace := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r'
	}
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

// ReadClientsFile decodes a ClientsRecord from an already-open,
// already-locked file positioned anywhere; it reseeks to the start. It is
// exported for callers (the watcher's two-phase sweep) that manage their
// own WithShared/WithExclusive critical sections directly rather than
// going through ReadClients/WriteClients.
func ReadClientsFile(f *os.File, rec *ClientsRecord) error {
	return readJSON(f, rec)
}

// WriteClientsFile encodes a ClientsRecord into an already-open,
// already-locked file, truncating prior content. See ReadClientsFile.
func WriteClientsFile(f *os.File, rec *ClientsRecord) error {
	return writeJSON(f, rec)
}

// ReadServer reads and locks name's server record.
func (s *Store) ReadServer(name string) (ServerRecord, error) {
	var rec ServerRecord
	err := s.WithExclusive(s.serverPath(name), func(f *os.File) error {
		return readJSON(f, &rec)
	})
	return rec, err
}

// WriteServer writes name's server record, truncating any prior content.
func (s *Store) WriteServer(name string, rec ServerRecord) error {
	return s.WithExclusive(s.serverPath(name), func(f *os.File) error {
		return writeJSON(f, &rec)
	})
}

// DeleteServer removes name's server lockfile if present.
func (s *Store) DeleteServer(name string) error {
	if err := os.Remove(s.serverPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadClients reads and locks name's clients record.
func (s *Store) ReadClients(name string) (ClientsRecord, error) {
	rec := NewClientsRecord()
	err := s.WithExclusive(s.clientsPath(name), func(f *os.File) error {
		return readJSON(f, &rec)
	})
	return rec, err
}

// WriteClients writes name's clients record, truncating any prior content.
func (s *Store) WriteClients(name string, rec ClientsRecord) error {
	return s.WithExclusive(s.clientsPath(name), func(f *os.File) error {
		return writeJSON(f, &rec)
	})
}

// DeleteClients removes name's clients lockfile if present.
func (s *Store) DeleteClients(name string) error {
	if err := os.Remove(s.clientsPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Names returns the sorted set of server names discovered by scanning the
// lock directory for *.server.json files, used by the registry and by
// `admin doctor` when run without an explicit name.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	const suffix = ".server.json"
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) > len(suffix) && n[len(n)-len(suffix):] == suffix {
			names = append(names, n[:len(n)-len(suffix)])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Package invocationlog appends a best-effort JSON-lines audit trail of
// every command invocation to NAME.invocations.log, rotating and
// LZ4-compressing old generations once the active log grows past 1 MiB.
// A failure anywhere in this package is swallowed by the caller
// (discarded, never propagated) since the audit log has no durability
// guarantee.
package invocationlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
)

// rotateThreshold is the active log size, in bytes, past which the next
// append triggers rotation.
const rotateThreshold = 1 << 20 // 1 MiB

// maxGenerations is the number of compressed rotated logs kept on disk;
// older ones are deleted.
const maxGenerations = 3

// Entry is one line of the invocation log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
	Result    string    `json:"result"` // "success" or "error"
	Error     string    `json:"error,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
}

// Success builds an Entry reporting a completed command.
func Success(command string, args []string, metadata string) Entry {
	return Entry{Timestamp: time.Now().UTC(), Command: command, Args: args, Result: "success", Metadata: metadata}
}

// Failure builds an Entry reporting a failed command.
func Failure(command string, args []string, cause error, metadata string) Entry {
	return Entry{Timestamp: time.Now().UTC(), Command: command, Args: args, Result: "error", Error: cause.Error(), Metadata: metadata}
}

// Log appends entry to NAME.invocations.log under dir, rotating first if
// the active log has grown past rotateThreshold.
func Log(dir, name string, entry Entry) error {
	path := logPath(dir, name)

	if info, err := os.Stat(path); err == nil && info.Size() > rotateThreshold {
		if err := rotate(dir, name); err != nil {
			return fmt.Errorf("rotate invocation log: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open invocation log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal invocation log entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write invocation log entry: %w", err)
	}
	return nil
}

func logPath(dir, name string) string {
	return filepath.Join(dir, name+".invocations.log")
}

func generationPath(dir, name string, gen int) string {
	return fmt.Sprintf("%s.%d.lz4", logPath(dir, name), gen)
}

// rotate shifts NAME.invocations.log.N.lz4 to N+1 (dropping the oldest
// past maxGenerations), then LZ4-compresses the current active log into
// generation 1 and truncates it.
func rotate(dir, name string) error {
	for gen := maxGenerations; gen >= 1; gen-- {
		src := generationPath(dir, name, gen)
		if gen == maxGenerations {
			_ = os.Remove(src)
			continue
		}
		dst := generationPath(dir, name, gen+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}

	active := logPath(dir, name)
	in, err := os.Open(active)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(generationPath(dir, name, 1))
	if err != nil {
		return err
	}
	defer out.Close()

	zw := lz4.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	in.Close()
	return os.Truncate(active, 0)
}

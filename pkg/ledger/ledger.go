// Package ledger keeps the project's append-only activity log at
// .ppm/ledger.jsonl: one JSON entry per line, each carrying a unique
// run id. The ledger records what happened; it is never an input to
// resolution.
package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry is one logged event.
type Entry struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Action  string         `json:"action"`
	Details map[string]any `json:"details,omitempty"`
}

// Ledger appends to and reads one project's log file.
type Ledger struct {
	path string
}

// Open returns the ledger for a project root. The file is created on
// first append.
func Open(root string) *Ledger {
	return &Ledger{path: filepath.Join(root, ".ppm", "ledger.jsonl")}
}

// Path returns the backing file location.
func (l *Ledger) Path() string { return l.path }

// Append writes one entry and returns it with its generated id.
func (l *Ledger) Append(action string, details map[string]any) (Entry, error) {
	e := Entry{
		ID:      uuid.NewString(),
		Time:    time.Now().UTC().Truncate(time.Second),
		Action:  action,
		Details: details,
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return Entry{}, err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Entries reads the whole log, oldest first. A missing file is an
// empty ledger, not an error. Corrupt lines are skipped; a partially
// written tail must not hide the rest of the history.
func (l *Ledger) Entries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}

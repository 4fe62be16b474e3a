package ledger

import (
	"os"
	"strings"
	"testing"
)

func TestAppendAndEntries(t *testing.T) {
	root := t.TempDir()
	l := Open(root)

	first, err := l.Append("resolve", map[string]any{"packages": 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Append("publish", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("run ids not unique: %q %q", first.ID, second.ID)
	}

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Action != "resolve" || entries[1].Action != "publish" {
		t.Errorf("entries = %+v", entries)
	}
	if entries[0].Details["packages"] != float64(2) {
		t.Errorf("details = %v", entries[0].Details)
	}
}

func TestEntriesMissingFile(t *testing.T) {
	entries, err := Open(t.TempDir()).Entries()
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
}

func TestEntriesSkipsCorruptLines(t *testing.T) {
	root := t.TempDir()
	l := Open(root)
	if _, err := l.Append("resolve", nil); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append.
	f, err := os.OpenFile(l.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"id": "trunc`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != "resolve" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestAppendIsJSONL(t *testing.T) {
	root := t.TempDir()
	l := Open(root)
	if _, err := l.Append("resolve", nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") || strings.Count(string(data), "\n") != 1 {
		t.Errorf("ledger file not one line per entry: %q", data)
	}
}

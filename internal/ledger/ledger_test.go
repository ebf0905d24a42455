package ledger

import (
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndExists(t *testing.T) {
	l := openTestLedger(t)

	exists, err := l.Exists("project", "acme/CORE")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected fresh ledger to be empty")
	}

	if err := l.Record("project", "acme/CORE", "run-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	exists, err = l.Exists("project", "acme/CORE")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Expected recorded entry to exist")
	}

	// Same key, different kind is a distinct entry.
	exists, err = l.Exists("issue", "acme/CORE")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected kind to scope the key")
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	l := openTestLedger(t)

	if err := l.Record("user", "dev@example.com", "run-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record("user", "dev@example.com", "run-2"); err != nil {
		t.Fatalf("Repeated Record failed: %v", err)
	}

	n, err := l.CountByKind("user")
	if err != nil {
		t.Fatalf("CountByKind failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 entry, got %d", n)
	}
}

func TestReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := l.Record("workspace", "acme", "run-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer l2.Close()

	exists, err := l2.Exists("workspace", "acme")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Expected entry to survive reopen")
	}
}

func TestNopNeverRemembers(t *testing.T) {
	var l Store = Nop{}

	if err := l.Record("project", "x", "run-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	exists, err := l.Exists("project", "x")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected Nop ledger to remember nothing")
	}
}

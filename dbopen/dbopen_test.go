package dbopen

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory(t *testing.T) {
	// WHAT: In-memory open succeeds and default pragmas are applied.
	// WHY: Every store test depends on this helper.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("pragma busy_timeout: %v", err)
	}
	if timeout != 20_000 {
		t.Errorf("busy_timeout: got %d, want 20000", timeout)
	}
}

func TestOpenWithMkdirAll(t *testing.T) {
	// WHAT: WithMkdirAll creates missing parent directories.
	// WHY: First start on a fresh host must not require manual setup.
	path := filepath.Join(t.TempDir(), "nested", "dir", "archive.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode: got %q, want wal", mode)
	}
}

func TestOpenWithSchema(t *testing.T) {
	// WHAT: Inline schema runs after pragmas.
	// WHY: Callers bootstrap tables at open time.
	db := OpenMemory(t, WithSchema(`CREATE TABLE probe (id INTEGER PRIMARY KEY)`))
	if _, err := db.Exec(`INSERT INTO probe (id) VALUES (1)`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestOpenWithoutForeignKeys(t *testing.T) {
	// WHAT: WithoutForeignKeys disables the pragma.
	db := OpenMemory(t, WithoutForeignKeys())
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 0 {
		t.Errorf("foreign_keys: got %d, want 0", fk)
	}
}

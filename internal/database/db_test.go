package database

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	got := dsn("resv", "secret", "db.local", "3306", "inventory")
	if !strings.HasPrefix(got, "resv:secret@tcp(db.local:3306)/inventory?") {
		t.Fatalf("unexpected dsn prefix: %q", got)
	}
	for _, param := range []string{"transaction_read_only=1", "parseTime=true", "loc=UTC"} {
		if !strings.Contains(got, param) {
			t.Fatalf("dsn missing %q: %q", param, got)
		}
	}

	// No password means no colon form at all.
	got = dsn("resv", "", "db.local", "3306", "inventory")
	if !strings.HasPrefix(got, "resv@tcp(") {
		t.Fatalf("unexpected dsn without password: %q", got)
	}
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPublication creates a publication with a single string trait.
func createTestPublication(batchID, name string, version int, value string) Publication {
	return Publication{
		BatchID: batchID,
		Name:    name,
		Version: version,
		Access:  ref.Write,
		Traits:  trait.Data{"string": trait.Properties{"value": trait.String(value)}},
	}
}

// Package testutil provides shared test helpers for setting up stores and node fixtures.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
	"github.com/starford/anchorage/internal/store/badger"
	"github.com/starford/anchorage/internal/store/sqlite"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "anchorage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlite.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MemStore creates an in-memory badger store.
func MemStore(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedTree stores a folder node "node.root" whose children are the given
// text nodes, each titled by its id. It returns the root.
func SeedTree(t *testing.T, s store.NodeStore, childIDs ...string) models.Node {
	t.Helper()
	ctx := context.Background()
	root := models.Node{
		NodeID:   "node.root",
		Type:     models.NodeFolder,
		Title:    "root",
		FilePath: models.FilePath{Path: []string{"node.root"}, Children: append([]string{}, childIDs...)},
	}
	if err := s.PutNode(ctx, root); err != nil {
		t.Fatal(err)
	}
	for _, id := range childIDs {
		n := models.Node{
			NodeID:   id,
			Type:     models.NodeText,
			Title:    id,
			Content:  "the quick brown fox",
			FilePath: models.FilePath{Path: []string{"node.root", id}},
		}
		if err := s.PutNode(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

package sqlite

import (
	"os"
	"testing"

	"github.com/starford/anchorage/internal/store"
	"github.com/starford/anchorage/internal/store/storetest"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "anchorage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return testDB(t) })
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"nodes", "anchors", "links"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	f, err := os.CreateTemp("", "anchorage-reopen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	for i := 0; i < 2; i++ {
		db, err := Open(f.Name())
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		db.Close()
	}
}

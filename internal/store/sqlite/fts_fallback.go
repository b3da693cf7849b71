//go:build !sqlite_fts5

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/anchorage/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; node search uses LIKE on the nodes table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// SearchNodes performs a LIKE-based search over titles and content.
func (db *DB) SearchNodes(ctx context.Context, query string, limit int) ([]models.Node, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE title LIKE ? OR content LIKE ?
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	return collectNodes(rows)
}

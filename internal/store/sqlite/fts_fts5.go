//go:build sqlite_fts5

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/anchorage/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			node_id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, nodeID, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE node_id = ?`, nodeID)
	_, err := tx.Exec(`INSERT INTO nodes_fts (node_id, title, content) VALUES (?, ?, ?)`, nodeID, title, content)
	if err != nil {
		return fmt.Errorf("sqlite: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, nodeID string) {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE node_id = ?`, nodeID)
}

// SearchNodes performs an FTS5 full-text search ranked by relevance.
func (db *DB) SearchNodes(ctx context.Context, query string, limit int) ([]models.Node, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT n.node_id, n.type, n.title, n.content, n.path, n.children, n.date_created
		FROM nodes_fts f
		JOIN nodes n ON n.node_id = f.node_id
		WHERE nodes_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	return collectNodes(rows)
}

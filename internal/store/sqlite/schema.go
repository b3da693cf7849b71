// Package sqlite implements the store contracts on SQLite, with optional FTS5 node search.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/store"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	node_id      TEXT PRIMARY KEY,
	parent_id    TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL DEFAULT '[]',
	children     TEXT NOT NULL DEFAULT '[]',
	date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS anchors (
	anchor_id  TEXT PRIMARY KEY,
	node_id    TEXT NOT NULL,
	extent_key TEXT NOT NULL,
	extent     TEXT NOT NULL DEFAULT 'null',
	UNIQUE(node_id, extent_key)
);

CREATE TABLE IF NOT EXISTS links (
	link_id         TEXT PRIMARY KEY,
	anchor1_id      TEXT NOT NULL,
	anchor2_id      TEXT NOT NULL,
	anchor1_node_id TEXT NOT NULL,
	anchor2_node_id TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	explainer       TEXT NOT NULL DEFAULT '',
	date_created    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_anchors_node ON anchors(node_id);
CREATE INDEX IF NOT EXISTS idx_links_anchor1 ON links(anchor1_id);
CREATE INDEX IF NOT EXISTS idx_links_anchor2 ON links(anchor2_id);
`

// DB wraps a sql.DB with anchor, link and node operations.
type DB struct {
	conn *sql.DB
}

var _ store.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isConstraint reports whether err is a UNIQUE or PRIMARY KEY violation.
func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

// classify maps driver errors onto the apperr taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite: %s: %w", op, apperr.ErrNotFound)
	case isConstraint(err):
		return fmt.Errorf("sqlite: %s: %w", op, apperr.ErrConflict)
	default:
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
}

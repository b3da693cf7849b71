package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/anchorage/internal/models"
)

const nodeColumns = `node_id, type, title, content, path, children, date_created`

// PutNode inserts or replaces a node and its search entry.
func (db *DB) PutNode(ctx context.Context, n models.Node) error {
	if n.DateCreated.IsZero() {
		n.DateCreated = time.Now().UTC()
	}
	pathJSON, _ := json.Marshal(nonNil(n.FilePath.Path))
	childrenJSON, _ := json.Marshal(nonNil(n.FilePath.Children))

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (node_id, parent_id, type, title, content, path, children, date_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			type      = excluded.type,
			title     = excluded.title,
			content   = excluded.content,
			path      = excluded.path,
			children  = excluded.children
	`, n.NodeID, n.FilePath.Parent(), string(n.Type), n.Title, n.Content, string(pathJSON), string(childrenJSON), n.DateCreated)
	if err != nil {
		return fmt.Errorf("sqlite: put node: %w", err)
	}
	if err := ftsUpsert(tx, n.NodeID, n.Title, n.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// GetNode returns the node with the given id.
func (db *DB) GetNode(ctx context.Context, nodeID string) (models.Node, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE node_id = ?`, nodeID)
	n, err := scanNode(row)
	if err != nil {
		return models.Node{}, classify("get node "+nodeID, err)
	}
	return n, nil
}

// DeleteNode removes a node row and its search entry. Anchors are cascaded by
// the node service, not here.
func (db *DB) DeleteNode(ctx context.Context, nodeID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, nodeID)
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("sqlite: delete node: %w", err)
	}
	return tx.Commit()
}

// RootNodes returns nodes without a parent, oldest first.
func (db *DB) RootNodes(ctx context.Context) ([]models.Node, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE parent_id = '' ORDER BY date_created, node_id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: root nodes: %w", err)
	}
	return collectNodes(rows)
}

type rowIter interface {
	scanner
	Next() bool
	Err() error
	Close() error
}

func collectNodes(rows rowIter) ([]models.Node, error) {
	defer rows.Close()
	out := []models.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNode(s scanner) (models.Node, error) {
	var (
		n                  models.Node
		typ, path, childrn string
	)
	if err := s.Scan(&n.NodeID, &typ, &n.Title, &n.Content, &path, &childrn, &n.DateCreated); err != nil {
		return models.Node{}, err
	}
	n.Type = models.NodeType(typ)
	if err := json.Unmarshal([]byte(path), &n.FilePath.Path); err != nil {
		return models.Node{}, fmt.Errorf("sqlite: decode path of %s: %w", n.NodeID, err)
	}
	if err := json.Unmarshal([]byte(childrn), &n.FilePath.Children); err != nil {
		return models.Node{}, fmt.Errorf("sqlite: decode children of %s: %w", n.NodeID, err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
)

// CreateAnchor inserts a. A duplicate id or (node, extent) pair is a conflict.
func (db *DB) CreateAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error) {
	raw, err := extent.Marshal(a.Extent)
	if err != nil {
		return models.Anchor{}, err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO anchors (anchor_id, node_id, extent_key, extent)
		VALUES (?, ?, ?, ?)
	`, a.AnchorID, a.NodeID, extent.Key(a.Extent), string(raw))
	if err != nil {
		return models.Anchor{}, classify("create anchor", err)
	}
	a.Extent = extent.Normalize(a.Extent)
	return a, nil
}

// GetAnchor returns the anchor with the given id.
func (db *DB) GetAnchor(ctx context.Context, anchorID string) (models.Anchor, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT anchor_id, node_id, extent FROM anchors WHERE anchor_id = ?`, anchorID)
	a, err := scanAnchor(row)
	if err != nil {
		return models.Anchor{}, classify("get anchor "+anchorID, err)
	}
	return a, nil
}

// GetAnchorsByNodeID returns every anchor owned by nodeID.
func (db *DB) GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT anchor_id, node_id, extent FROM anchors WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: anchors by node: %w", err)
	}
	defer rows.Close()

	out := []models.Anchor{}
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateExtent moves an anchor to a new extent on the same node.
func (db *DB) UpdateExtent(ctx context.Context, anchorID string, e extent.Extent) (models.Anchor, error) {
	raw, err := extent.Marshal(e)
	if err != nil {
		return models.Anchor{}, err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE anchors SET extent_key = ?, extent = ? WHERE anchor_id = ?
	`, extent.Key(e), string(raw), anchorID)
	if err != nil {
		return models.Anchor{}, classify("update extent", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Anchor{}, fmt.Errorf("sqlite: update extent %s: %w", anchorID, apperr.ErrNotFound)
	}
	return db.GetAnchor(ctx, anchorID)
}

// DeleteAnchor removes the anchor; missing anchors are not an error.
func (db *DB) DeleteAnchor(ctx context.Context, anchorID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM anchors WHERE anchor_id = ?`, anchorID); err != nil {
		return fmt.Errorf("sqlite: delete anchor: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnchor(s scanner) (models.Anchor, error) {
	var (
		a   models.Anchor
		raw string
	)
	if err := s.Scan(&a.AnchorID, &a.NodeID, &raw); err != nil {
		return models.Anchor{}, err
	}
	e, err := extent.Unmarshal([]byte(raw))
	if err != nil {
		return models.Anchor{}, fmt.Errorf("sqlite: decode extent of %s: %w", a.AnchorID, err)
	}
	a.Extent = e
	return a, nil
}

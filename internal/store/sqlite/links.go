package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/anchorage/internal/models"
)

const linkColumns = `link_id, anchor1_id, anchor2_id, anchor1_node_id, anchor2_node_id, title, explainer, date_created`

// CreateLink inserts l as given; anchor existence is checked by the caller.
func (db *DB) CreateLink(ctx context.Context, l models.Link) (models.Link, error) {
	if l.DateCreated.IsZero() {
		l.DateCreated = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.LinkID, l.Anchor1ID, l.Anchor2ID, l.Anchor1NodeID, l.Anchor2NodeID, l.Title, l.Explainer, l.DateCreated)
	if err != nil {
		return models.Link{}, classify("create link", err)
	}
	return l, nil
}

// GetLink returns the link with the given id.
func (db *DB) GetLink(ctx context.Context, linkID string) (models.Link, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE link_id = ?`, linkID)
	l, err := scanLink(row)
	if err != nil {
		return models.Link{}, classify("get link "+linkID, err)
	}
	return l, nil
}

// GetLinksByAnchorID returns links where anchorID is either end.
func (db *DB) GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE anchor1_id = ? OR anchor2_id = ?
		ORDER BY date_created, link_id
	`, anchorID, anchorID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: links by anchor: %w", err)
	}
	defer rows.Close()

	out := []models.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLink removes the link; missing links are not an error.
func (db *DB) DeleteLink(ctx context.Context, linkID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM links WHERE link_id = ?`, linkID); err != nil {
		return fmt.Errorf("sqlite: delete link: %w", err)
	}
	return nil
}

// DeleteLinks removes all given links in one transaction.
func (db *DB) DeleteLinks(ctx context.Context, linkIDs []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM links WHERE link_id = ?`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare link delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range linkIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("sqlite: delete link %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanLink(s scanner) (models.Link, error) {
	var l models.Link
	err := s.Scan(&l.LinkID, &l.Anchor1ID, &l.Anchor2ID, &l.Anchor1NodeID, &l.Anchor2NodeID, &l.Title, &l.Explainer, &l.DateCreated)
	return l, err
}

package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/models"
)

// CreateLink inserts l and indexes it under both anchors.
func (d *DB) CreateLink(ctx context.Context, l models.Link) (models.Link, error) {
	if l.DateCreated.IsZero() {
		l.DateCreated = time.Now().UTC()
	}
	err := d.update(ctx, func(txn *badger.Txn) error {
		if ok, err := exists(txn, linkKey(l.LinkID)); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: link %s already exists", apperr.ErrConflict, l.LinkID)
		}
		if err := setJSON(txn, linkKey(l.LinkID), l); err != nil {
			return err
		}
		if err := txn.Set(linkByAnchorKey(l.Anchor1ID, l.LinkID), nil); err != nil {
			return err
		}
		return txn.Set(linkByAnchorKey(l.Anchor2ID, l.LinkID), nil)
	})
	if err != nil {
		return models.Link{}, err
	}
	return l, nil
}

// GetLink returns the link with the given id.
func (d *DB) GetLink(ctx context.Context, linkID string) (models.Link, error) {
	var l models.Link
	err := d.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, linkKey(linkID), &l)
	})
	return l, err
}

// GetLinksByAnchorID returns links with anchorID on either side, oldest first.
func (d *DB) GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error) {
	out := []models.Link{}
	err := d.view(ctx, func(txn *badger.Txn) error {
		for _, id := range suffixes(txn, linksOfAnchor(anchorID)) {
			var l models.Link
			if err := getJSON(txn, linkKey(id), &l); err != nil {
				return err
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b models.Link) int {
		if c := a.DateCreated.Compare(b.DateCreated); c != 0 {
			return c
		}
		return cmp.Compare(a.LinkID, b.LinkID)
	})
	return out, nil
}

// DeleteLink removes a link. Missing ids are ignored.
func (d *DB) DeleteLink(ctx context.Context, linkID string) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		return deleteLink(txn, linkID)
	})
}

// DeleteLinks removes every listed link in one transaction.
func (d *DB) DeleteLinks(ctx context.Context, linkIDs []string) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		for _, id := range linkIDs {
			if err := deleteLink(txn, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteLink(txn *badger.Txn, linkID string) error {
	var l models.Link
	if err := getJSON(txn, linkKey(linkID), &l); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, k := range [][]byte{
		linkKey(linkID),
		linkByAnchorKey(l.Anchor1ID, linkID),
		linkByAnchorKey(l.Anchor2ID, linkID),
	} {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

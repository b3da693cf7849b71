package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
)

// CreateAnchor inserts a. A duplicate id or (node, extent) pair is a conflict.
func (d *DB) CreateAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error) {
	a.Extent = extent.Normalize(a.Extent)
	err := d.update(ctx, func(txn *badger.Txn) error {
		if ok, err := exists(txn, anchorKey(a.AnchorID)); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: anchor %s already exists", apperr.ErrConflict, a.AnchorID)
		}
		xk := anchorExtentKey(a.NodeID, extent.Key(a.Extent))
		if ok, err := exists(txn, xk); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: node %s already has an anchor on %s", apperr.ErrConflict, a.NodeID, extent.Key(a.Extent))
		}
		if err := setJSON(txn, anchorKey(a.AnchorID), a); err != nil {
			return err
		}
		if err := txn.Set(anchorByNodeKey(a.NodeID, a.AnchorID), nil); err != nil {
			return err
		}
		return txn.Set(xk, []byte(a.AnchorID))
	})
	if err != nil {
		return models.Anchor{}, err
	}
	return a, nil
}

// GetAnchor returns the anchor with the given id.
func (d *DB) GetAnchor(ctx context.Context, anchorID string) (models.Anchor, error) {
	var a models.Anchor
	err := d.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, anchorKey(anchorID), &a)
	})
	return a, err
}

// GetAnchorsByNodeID returns every anchor owned by nodeID.
func (d *DB) GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error) {
	out := []models.Anchor{}
	err := d.view(ctx, func(txn *badger.Txn) error {
		for _, id := range suffixes(txn, anchorsOfNode(nodeID)) {
			var a models.Anchor
			if err := getJSON(txn, anchorKey(id), &a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateExtent moves an anchor to a new extent on the same node.
func (d *DB) UpdateExtent(ctx context.Context, anchorID string, e extent.Extent) (models.Anchor, error) {
	e = extent.Normalize(e)
	var a models.Anchor
	err := d.update(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, anchorKey(anchorID), &a); err != nil {
			return err
		}
		oldKey := anchorExtentKey(a.NodeID, extent.Key(a.Extent))
		newKey := anchorExtentKey(a.NodeID, extent.Key(e))
		if string(oldKey) != string(newKey) {
			if ok, err := exists(txn, newKey); err != nil {
				return err
			} else if ok {
				return fmt.Errorf("%w: node %s already has an anchor on %s", apperr.ErrConflict, a.NodeID, extent.Key(e))
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
			if err := txn.Set(newKey, []byte(anchorID)); err != nil {
				return err
			}
		}
		a.Extent = e
		return setJSON(txn, anchorKey(anchorID), a)
	})
	if err != nil {
		return models.Anchor{}, err
	}
	return a, nil
}

// DeleteAnchor removes the anchor and its index entries. Missing ids are ignored.
func (d *DB) DeleteAnchor(ctx context.Context, anchorID string) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		var a models.Anchor
		if err := getJSON(txn, anchorKey(anchorID), &a); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			return err
		}
		for _, k := range [][]byte{
			anchorKey(anchorID),
			anchorByNodeKey(a.NodeID, anchorID),
			anchorExtentKey(a.NodeID, extent.Key(a.Extent)),
		} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

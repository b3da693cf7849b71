package badger

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/starford/anchorage/internal/models"
)

// PutNode inserts or replaces n.
func (d *DB) PutNode(ctx context.Context, n models.Node) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, nodeKey(n.NodeID), n)
	})
}

// GetNode returns the node with the given id.
func (d *DB) GetNode(ctx context.Context, nodeID string) (models.Node, error) {
	var n models.Node
	err := d.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, nodeKey(nodeID), &n)
	})
	return n, err
}

// DeleteNode removes the node record. Missing ids are ignored.
func (d *DB) DeleteNode(ctx context.Context, nodeID string) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(nodeKey(nodeID))
	})
}

// RootNodes returns nodes without a parent, oldest first.
func (d *DB) RootNodes(ctx context.Context) ([]models.Node, error) {
	return d.scanNodes(ctx, func(n models.Node) bool { return n.FilePath.Parent() == "" }, 0)
}

// SearchNodes does a case-insensitive substring match on title and content.
func (d *DB) SearchNodes(ctx context.Context, query string, limit int) ([]models.Node, error) {
	q := strings.ToLower(query)
	return d.scanNodes(ctx, func(n models.Node) bool {
		return strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q)
	}, limit)
}

func (d *DB) scanNodes(ctx context.Context, keep func(models.Node) bool, limit int) ([]models.Node, error) {
	out := []models.Node{}
	err := d.view(ctx, func(txn *badger.Txn) error {
		return eachValue(txn, prefixNode, func(val []byte) error {
			var n models.Node
			if err := json.Unmarshal(val, &n); err != nil {
				return err
			}
			if keep(n) {
				out = append(out, n)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b models.Node) int {
		if c := a.DateCreated.Compare(b.DateCreated); c != 0 {
			return c
		}
		return cmp.Compare(a.NodeID, b.NodeID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

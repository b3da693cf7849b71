package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/starford/anchorage/internal/apperr"
)

const (
	prefixAnchor       = "a/"
	prefixAnchorByNode = "an/"
	prefixAnchorExtent = "ax/"
	prefixLink         = "l/"
	prefixLinkByAnchor = "la/"
	prefixNode         = "n/"
)

// scope is the length-prefixed owner segment of a secondary key. Ids are
// opaque and may contain "/", so a plain separator would let "x" match "x/y".
func scope(prefix, id string) string {
	return prefix + strconv.Itoa(len(id)) + ":" + id + "/"
}

func anchorKey(id string) []byte { return []byte(prefixAnchor + id) }

func anchorsOfNode(nodeID string) string { return scope(prefixAnchorByNode, nodeID) }

func anchorByNodeKey(nodeID, anchorID string) []byte {
	return []byte(anchorsOfNode(nodeID) + anchorID)
}

func anchorExtentKey(nodeID, extentKey string) []byte {
	return []byte(scope(prefixAnchorExtent, nodeID) + extentKey)
}

func linkKey(id string) []byte { return []byte(prefixLink + id) }

func linksOfAnchor(anchorID string) string { return scope(prefixLinkByAnchor, anchorID) }

func linkByAnchorKey(anchorID, linkID string) []byte {
	return []byte(linksOfAnchor(anchorID) + linkID)
}

func nodeKey(id string) []byte { return []byte(prefixNode + id) }

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	}
	return false, err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

// suffixes returns the remainder of every key under prefix.
func suffixes(txn *badger.Txn, prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Rewind(); it.Valid(); it.Next() {
		out = append(out, string(it.Item().Key()[len(prefix):]))
	}
	return out
}

// eachValue calls fn with the value of every key under prefix.
func eachValue(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

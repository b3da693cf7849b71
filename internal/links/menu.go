package links

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/models"
)

// MenuEntry is one link seen from one of its anchors.
type MenuEntry struct {
	Link      models.Link   `json:"link"`
	OppNode   models.Node   `json:"oppNode"`
	OppAnchor models.Anchor `json:"oppAnchor"`
}

// AnchorLinks groups the links of one anchor.
type AnchorLinks struct {
	Anchor models.Anchor `json:"anchor"`
	Links  []MenuEntry   `json:"links"`
}

// AnchorLinks lists every anchor on nodeID with its links and the far side of
// each. Links whose far anchor or node is gone are left out. Per-anchor
// fetches run concurrently and are aggregated once all have finished.
func (r *Registry) AnchorLinks(ctx context.Context, nodeID string) ([]AnchorLinks, error) {
	list, err := r.anchors.GetAnchorsByNodeID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	byAnchor := make(map[string][]MenuEntry, len(list))

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range list {
		g.Go(func() error {
			entries, err := r.menuEntries(gctx, a)
			if err != nil {
				return err
			}
			mu.Lock()
			byAnchor[a.AnchorID] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]AnchorLinks, 0, len(list))
	for _, a := range list {
		out = append(out, AnchorLinks{Anchor: a, Links: byAnchor[a.AnchorID]})
	}
	slices.SortFunc(out, func(x, y AnchorLinks) int { return cmp.Compare(x.Anchor.AnchorID, y.Anchor.AnchorID) })
	return out, nil
}

func (r *Registry) menuEntries(ctx context.Context, a models.Anchor) ([]MenuEntry, error) {
	ls, err := r.store.GetLinksByAnchorID(ctx, a.AnchorID)
	if err != nil {
		return nil, err
	}
	entries := []MenuEntry{}
	for _, l := range ls {
		oppAnchorID, oppNodeID, ok := l.Opposite(a.AnchorID)
		if !ok {
			continue
		}
		oppAnchor, err := r.anchors.GetAnchor(ctx, oppAnchorID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		oppNode, err := r.nodes.GetNode(ctx, oppNodeID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, MenuEntry{Link: l, OppNode: oppNode, OppAnchor: oppAnchor})
	}
	return entries, nil
}

// Package linkgraph derives the undirected node/edge graph drawn for a set of
// sibling nodes from their anchors and the links between them.
package linkgraph

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
)

// AnchorLister lists the anchors of a node.
type AnchorLister interface {
	GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error)
}

// LinkLister lists the links of an anchor.
type LinkLister interface {
	GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error)
}

// Node is a graph vertex: one sibling content node.
type Node struct {
	NodeID string          `json:"nodeId"`
	Title  string          `json:"title"`
	Type   models.NodeType `json:"type"`
}

// Edge is one undirected link between two siblings. Source and Target are
// node ids in the link's anchor order.
type Edge struct {
	LinkID string `json:"linkId"`
	Source string `json:"source"`
	Target string `json:"target"`
	Title  string `json:"title"`
}

// Graph is the derived link-graph. It is never persisted.
type Graph struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	Version uint64 `json:"version"`
}

// Builder computes link-graphs from scratch on every call.
type Builder struct {
	anchors AnchorLister
	links   LinkLister
	log     *slog.Logger
}

// NewBuilder returns a Builder reading through a and l.
func NewBuilder(a AnchorLister, l LinkLister, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{anchors: a, links: l, log: log}
}

// Build returns the graph of siblings. Every sibling is a vertex. A link
// becomes an edge only when both of its nodes are siblings, and at most one
// edge is kept per unordered node pair: the earliest by creation time, then
// link id. Fetches run concurrently and are aggregated after all complete;
// the first failure aborts the build.
func (b *Builder) Build(ctx context.Context, siblings []models.Node) (Graph, error) {
	defer metrics.ObserveSince(metrics.GraphBuildDuration, time.Now())

	scope := make(map[string]models.Node, len(siblings))
	for _, n := range siblings {
		scope[n.NodeID] = n
	}

	anchorIDs, err := b.collectAnchors(ctx, scope)
	if err != nil {
		return Graph{}, err
	}
	candidates, err := b.collectLinks(ctx, anchorIDs)
	if err != nil {
		return Graph{}, err
	}

	g := Graph{Nodes: make([]Node, 0, len(scope)), Edges: []Edge{}}
	for _, n := range scope {
		g.Nodes = append(g.Nodes, Node{NodeID: n.NodeID, Title: n.Title, Type: n.Type})
	}
	slices.SortFunc(g.Nodes, func(x, y Node) int { return cmp.Compare(x.NodeID, y.NodeID) })

	slices.SortFunc(candidates, func(x, y models.Link) int {
		if c := x.DateCreated.Compare(y.DateCreated); c != 0 {
			return c
		}
		return cmp.Compare(x.LinkID, y.LinkID)
	})
	seen := map[string]bool{}
	for _, l := range candidates {
		_, in1 := scope[l.Anchor1NodeID]
		_, in2 := scope[l.Anchor2NodeID]
		if !in1 || !in2 {
			continue
		}
		key := l.NodePairKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		g.Edges = append(g.Edges, Edge{LinkID: l.LinkID, Source: l.Anchor1NodeID, Target: l.Anchor2NodeID, Title: l.Title})
	}

	b.log.Debug("linkgraph: built",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("candidate_links", len(candidates)),
		slog.Int("edges", len(g.Edges)),
	)
	return g, nil
}

func (b *Builder) collectAnchors(ctx context.Context, scope map[string]models.Node) ([]string, error) {
	var (
		mu  sync.Mutex
		ids []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for nodeID := range scope {
		g.Go(func() error {
			list, err := b.anchors.GetAnchorsByNodeID(gctx, nodeID)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, a := range list {
				ids = append(ids, a.AnchorID)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (b *Builder) collectLinks(ctx context.Context, anchorIDs []string) ([]models.Link, error) {
	var (
		mu   sync.Mutex
		byID = map[string]models.Link{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range anchorIDs {
		g.Go(func() error {
			ls, err := b.links.GetLinksByAnchorID(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, l := range ls {
				byID[l.LinkID] = l
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]models.Link, 0, len(byID))
	for _, l := range byID {
		out = append(out, l)
	}
	return out, nil
}

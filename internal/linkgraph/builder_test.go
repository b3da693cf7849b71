package linkgraph

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/testutil"
)

type env struct {
	anchors  *anchors.Registry
	links    *links.Registry
	builder  *Builder
	siblings []models.Node
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := testutil.MemStore(t)
	testutil.SeedTree(t, s, "node.a", "node.b", "node.c", "node.out")
	a := anchors.New(s)
	l := links.New(s, a, s)
	var siblings []models.Node
	for _, id := range []string{"node.a", "node.b", "node.c"} {
		n, err := s.GetNode(context.Background(), id)
		require.NoError(t, err)
		siblings = append(siblings, n)
	}
	return &env{anchors: a, links: l, builder: NewBuilder(a, l, nil), siblings: siblings}
}

func (e *env) link(t *testing.T, n1 string, e1 extent.Extent, n2 string, e2 extent.Extent) models.Link {
	t.Helper()
	ctx := context.Background()
	resolve := func(nodeID string, ext extent.Extent) models.Anchor {
		a, ok, err := e.anchors.FindAnchor(ctx, nodeID, ext)
		require.NoError(t, err)
		if ok {
			return a
		}
		a, err = e.anchors.CreateAnchor(ctx, models.Anchor{NodeID: nodeID, Extent: ext})
		require.NoError(t, err)
		return a
	}
	x, y := resolve(n1, e1), resolve(n2, e2)
	l, err := e.links.CreateLink(ctx, models.Link{Anchor1ID: x.AnchorID, Anchor2ID: y.AnchorID, Title: n1 + "-" + n2})
	require.NoError(t, err)
	return l
}

func edgePairs(g Graph) []string {
	var out []string
	for _, e := range g.Edges {
		out = append(out, models.Link{Anchor1NodeID: e.Source, Anchor2NodeID: e.Target}.NodePairKey())
	}
	return out
}

func TestBuild_AllSiblingsAreVertices(t *testing.T) {
	e := newEnv(t)
	g, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "node.a", g.Nodes[0].NodeID)
	assert.Empty(t, g.Edges)
}

func TestBuild_TextToWholeNodeScenario(t *testing.T) {
	e := newEnv(t)
	l := e.link(t, "node.a", extent.Text{StartCharacter: 0, EndCharacter: 5}, "node.b", extent.None{})

	g, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, Edge{LinkID: l.LinkID, Source: "node.a", Target: "node.b", Title: "node.a-node.b"}, g.Edges[0])
}

func TestBuild_DedupsUndirectedNodePairs(t *testing.T) {
	e := newEnv(t)
	first := e.link(t, "node.a", extent.None{}, "node.b", extent.None{})
	time.Sleep(time.Millisecond)
	e.link(t, "node.b", extent.Text{StartCharacter: 1, EndCharacter: 2}, "node.a", extent.Text{StartCharacter: 3, EndCharacter: 4})
	e.link(t, "node.a", extent.None{}, "node.b", extent.None{})
	e.link(t, "node.b", extent.None{}, "node.c", extent.None{})

	g, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, first.LinkID, g.Edges[0].LinkID, "earliest link wins")

	pairs := edgePairs(g)
	assert.ElementsMatch(t, []string{"node.a\x00node.b", "node.b\x00node.c"}, pairs)
}

func TestBuild_DropsLinksLeavingScope(t *testing.T) {
	e := newEnv(t)
	e.link(t, "node.a", extent.None{}, "node.out", extent.None{})

	g, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestBuild_KeepsSelfLinks(t *testing.T) {
	e := newEnv(t)
	e.link(t, "node.a", extent.Text{StartCharacter: 0, EndCharacter: 1}, "node.a", extent.Text{StartCharacter: 2, EndCharacter: 3})

	g, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "node.a", g.Edges[0].Source)
	assert.Equal(t, "node.a", g.Edges[0].Target)
}

func TestBuild_DeletedLinkDropsEdge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l := e.link(t, "node.a", extent.Text{StartCharacter: 0, EndCharacter: 5}, "node.b", extent.None{})
	require.NoError(t, e.links.DeleteLink(ctx, l.LinkID))

	_, ok, err := e.anchors.FindAnchor(ctx, "node.a", extent.Text{StartCharacter: 0, EndCharacter: 5})
	require.NoError(t, err)
	assert.False(t, ok, "orphaned anchor is removed")

	g, err := e.builder.Build(ctx, e.siblings)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestBuild_AnchorDeletedWithLinksDropsEdges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hub := extent.Text{StartCharacter: 0, EndCharacter: 5}
	e.link(t, "node.a", hub, "node.b", extent.None{})
	e.link(t, "node.a", hub, "node.c", extent.None{})
	e.link(t, "node.b", extent.Text{StartCharacter: 1, EndCharacter: 2}, "node.c", extent.Text{StartCharacter: 3, EndCharacter: 4})

	a, ok, err := e.anchors.FindAnchor(ctx, "node.a", hub)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, e.links.DeleteAnchorWithLinks(ctx, a.AnchorID, metrics.ReasonExplicit))

	g, err := e.builder.Build(ctx, e.siblings)
	require.NoError(t, err)
	assert.Equal(t, []string{"node.b\x00node.c"}, edgePairs(g))
}

// shuffled delays every response by a random amount so completions arrive
// out of issue order.
type shuffled struct {
	AnchorLister
	LinkLister
}

func jitter() { time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond) }

func (s shuffled) GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error) {
	jitter()
	return s.AnchorLister.GetAnchorsByNodeID(ctx, nodeID)
}

func (s shuffled) GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error) {
	jitter()
	return s.LinkLister.GetLinksByAnchorID(ctx, anchorID)
}

func TestBuild_DeterministicUnderReordering(t *testing.T) {
	e := newEnv(t)
	e.link(t, "node.a", extent.None{}, "node.b", extent.None{})
	e.link(t, "node.b", extent.None{}, "node.c", extent.None{})
	e.link(t, "node.c", extent.None{}, "node.a", extent.None{})

	want, err := e.builder.Build(context.Background(), e.siblings)
	require.NoError(t, err)

	sh := shuffled{AnchorLister: e.anchors, LinkLister: e.links}
	b := NewBuilder(sh, sh, nil)
	for range 10 {
		got, err := b.Build(context.Background(), e.siblings)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

type failingLinks struct{}

func (failingLinks) GetLinksByAnchorID(context.Context, string) ([]models.Link, error) {
	return nil, errors.New("store unavailable")
}

func TestBuild_FailsFast(t *testing.T) {
	e := newEnv(t)
	e.link(t, "node.a", extent.None{}, "node.b", extent.None{})

	_, err := NewBuilder(e.anchors, failingLinks{}, nil).Build(context.Background(), e.siblings)
	assert.ErrorContains(t, err, "store unavailable")
}

func TestToDOT(t *testing.T) {
	g := Graph{
		Nodes: []Node{{NodeID: "node.a", Title: "Alpha"}, {NodeID: "node.b"}},
		Edges: []Edge{{LinkID: "link.1", Source: "node.a", Target: "node.b", Title: "see also"}},
	}
	dot := ToDOT(g)
	assert.True(t, strings.HasPrefix(dot, "graph G {"))
	assert.Contains(t, dot, `"node.a" [label="Alpha"];`)
	assert.Contains(t, dot, `"node.b" [label="node.b"];`)
	assert.Contains(t, dot, `"node.a" -- "node.b" [label="see also"];`)
	assert.NotContains(t, dot, "->")
}

func TestRenderSVG(t *testing.T) {
	g := Graph{
		Nodes: []Node{{NodeID: "node.a", Title: "Alpha"}, {NodeID: "node.b", Title: "Beta"}},
		Edges: []Edge{{LinkID: "link.1", Source: "node.a", Target: "node.b"}},
	}
	svg, err := RenderSVG(context.Background(), g)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "Alpha")
}

// Package storetest holds a conformance suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
)

// Run exercises newStore against the store contracts.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("AnchorCRUD", func(t *testing.T) { testAnchorCRUD(t, newStore(t)) })
	t.Run("AnchorConflict", func(t *testing.T) { testAnchorConflict(t, newStore(t)) })
	t.Run("UpdateExtent", func(t *testing.T) { testUpdateExtent(t, newStore(t)) })
	t.Run("LinksByAnchor", func(t *testing.T) { testLinksByAnchor(t, newStore(t)) })
	t.Run("DeleteLinks", func(t *testing.T) { testDeleteLinks(t, newStore(t)) })
	t.Run("Nodes", func(t *testing.T) { testNodes(t, newStore(t)) })
	t.Run("NestedIDs", func(t *testing.T) { testNestedIDs(t, newStore(t)) })
}

// testNestedIDs checks that an id is never treated as a prefix of a longer
// id that extends it with "/".
func testNestedIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, a := range []models.Anchor{
		{AnchorID: "x", NodeID: "n"},
		{AnchorID: "x/y", NodeID: "n/q"},
		{AnchorID: "z", NodeID: "m"},
	} {
		if _, err := s.CreateAnchor(ctx, a); err != nil {
			t.Fatalf("CreateAnchor %s: %v", a.AnchorID, err)
		}
	}
	if _, err := s.CreateLink(ctx, models.Link{
		LinkID: "L1", Anchor1ID: "x/y", Anchor2ID: "z", Anchor1NodeID: "n/q", Anchor2NodeID: "m",
	}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	links, err := s.GetLinksByAnchorID(ctx, "x")
	if err != nil {
		t.Fatalf("GetLinksByAnchorID(x): %v", err)
	}
	if len(links) != 0 {
		t.Errorf("links of x = %d, want 0", len(links))
	}
	links, err = s.GetLinksByAnchorID(ctx, "x/y")
	if err != nil || len(links) != 1 {
		t.Errorf("links of x/y = %v, %v", links, err)
	}

	anchors, err := s.GetAnchorsByNodeID(ctx, "n")
	if err != nil {
		t.Fatalf("GetAnchorsByNodeID(n): %v", err)
	}
	if len(anchors) != 1 || anchors[0].AnchorID != "x" {
		t.Errorf("anchors of n = %+v", anchors)
	}

	// Whole-node anchors on "n" and "n/q" are distinct extents.
	if _, err := s.CreateAnchor(ctx, models.Anchor{AnchorID: "w", NodeID: "n/q/"}); err != nil {
		t.Errorf("CreateAnchor on n/q/: %v", err)
	}
}

func testAnchorCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := models.Anchor{AnchorID: "anchor.1", NodeID: "node.a", Extent: extent.Text{StartCharacter: 0, EndCharacter: 5, Text: "hello"}}
	if _, err := s.CreateAnchor(ctx, a); err != nil {
		t.Fatalf("CreateAnchor: %v", err)
	}
	if _, err := s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.2", NodeID: "node.a"}); err != nil {
		t.Fatalf("CreateAnchor whole: %v", err)
	}

	got, err := s.GetAnchor(ctx, "anchor.1")
	if err != nil {
		t.Fatalf("GetAnchor: %v", err)
	}
	if !got.Matches("node.a", a.Extent) {
		t.Errorf("GetAnchor = %+v", got)
	}
	if txt, ok := got.Extent.(extent.Text); !ok || txt.Text != "hello" {
		t.Errorf("text content lost: %#v", got.Extent)
	}

	list, err := s.GetAnchorsByNodeID(ctx, "node.a")
	if err != nil {
		t.Fatalf("GetAnchorsByNodeID: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 anchors, got %d", len(list))
	}
	if _, ok := models.FindByExtent(list, "node.a", extent.None{}); !ok {
		t.Error("whole-node anchor not listed")
	}

	empty, err := s.GetAnchorsByNodeID(ctx, "node.none")
	if err != nil || len(empty) != 0 {
		t.Errorf("anchors of unknown node = %v, %v", empty, err)
	}

	if err := s.DeleteAnchor(ctx, "anchor.1"); err != nil {
		t.Fatalf("DeleteAnchor: %v", err)
	}
	if err := s.DeleteAnchor(ctx, "anchor.1"); err != nil {
		t.Fatalf("DeleteAnchor should be idempotent: %v", err)
	}
	if _, err := s.GetAnchor(ctx, "anchor.1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func testAnchorConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	img := extent.Image{Top: 1, Left: 2, Width: 3, Height: 4}
	if _, err := s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.1", NodeID: "node.a", Extent: img}); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.2", NodeID: "node.a", Extent: img})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("same node+extent: expected conflict, got %v", err)
	}
	_, err = s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.1", NodeID: "node.b"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate id: expected conflict, got %v", err)
	}
	if _, err := s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.3", NodeID: "node.b", Extent: img}); err != nil {
		t.Errorf("same extent on another node should be allowed: %v", err)
	}
}

func testUpdateExtent(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, _ = s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.1", NodeID: "node.a", Extent: extent.Text{StartCharacter: 0, EndCharacter: 5}})
	_, _ = s.CreateAnchor(ctx, models.Anchor{AnchorID: "anchor.2", NodeID: "node.a", Extent: extent.Text{StartCharacter: 10, EndCharacter: 12}})

	moved, err := s.UpdateExtent(ctx, "anchor.1", extent.Text{StartCharacter: 3, EndCharacter: 8})
	if err != nil {
		t.Fatalf("UpdateExtent: %v", err)
	}
	if !extent.Equal(moved.Extent, extent.Text{StartCharacter: 3, EndCharacter: 8}) {
		t.Errorf("extent = %#v", moved.Extent)
	}
	list, _ := s.GetAnchorsByNodeID(ctx, "node.a")
	if _, ok := models.FindByExtent(list, "node.a", extent.Text{StartCharacter: 0, EndCharacter: 5}); ok {
		t.Error("old extent still indexed")
	}

	if _, err := s.UpdateExtent(ctx, "anchor.1", extent.Text{StartCharacter: 10, EndCharacter: 12}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("moving onto another anchor's extent: expected conflict, got %v", err)
	}
	if _, err := s.UpdateExtent(ctx, "anchor.missing", extent.None{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func testLinksByAnchor(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	l1 := models.Link{LinkID: "link.1", Anchor1ID: "x", Anchor2ID: "y", Anchor1NodeID: "A", Anchor2NodeID: "B", Title: "t", DateCreated: now}
	l2 := models.Link{LinkID: "link.2", Anchor1ID: "z", Anchor2ID: "x", Anchor1NodeID: "C", Anchor2NodeID: "A", DateCreated: now.Add(time.Second)}
	for _, l := range []models.Link{l1, l2} {
		if _, err := s.CreateLink(ctx, l); err != nil {
			t.Fatalf("CreateLink: %v", err)
		}
	}
	if _, err := s.CreateLink(ctx, l1); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate link id: expected conflict, got %v", err)
	}

	got, err := s.GetLinksByAnchorID(ctx, "x")
	if err != nil {
		t.Fatalf("GetLinksByAnchorID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 links for x, got %d", len(got))
	}
	got, _ = s.GetLinksByAnchorID(ctx, "y")
	if len(got) != 1 || got[0].LinkID != "link.1" || got[0].Title != "t" {
		t.Errorf("links for y = %+v", got)
	}

	l, err := s.GetLink(ctx, "link.2")
	if err != nil || l.Anchor1NodeID != "C" {
		t.Errorf("GetLink = %+v, %v", l, err)
	}

	if err := s.DeleteLink(ctx, "link.1"); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	if err := s.DeleteLink(ctx, "link.1"); err != nil {
		t.Fatalf("DeleteLink should be idempotent: %v", err)
	}
	got, _ = s.GetLinksByAnchorID(ctx, "y")
	if len(got) != 0 {
		t.Errorf("deleted link still listed: %+v", got)
	}
	if _, err := s.GetLink(ctx, "link.1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func testDeleteLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []string{"link.1", "link.2", "link.3"} {
		_, _ = s.CreateLink(ctx, models.Link{LinkID: id, Anchor1ID: "x", Anchor2ID: id, Anchor1NodeID: "A", Anchor2NodeID: "B"})
	}
	if err := s.DeleteLinks(ctx, []string{"link.1", "link.3", "link.missing"}); err != nil {
		t.Fatalf("DeleteLinks: %v", err)
	}
	got, _ := s.GetLinksByAnchorID(ctx, "x")
	if len(got) != 1 || got[0].LinkID != "link.2" {
		t.Errorf("remaining = %+v", got)
	}
}

func testNodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	root := models.Node{NodeID: "node.root", Type: models.NodeFolder, Title: "Root", FilePath: models.FilePath{Path: []string{"node.root"}, Children: []string{"node.a"}}}
	child := models.Node{NodeID: "node.a", Type: models.NodeText, Title: "Alpha", Content: "quokka facts", FilePath: models.FilePath{Path: []string{"node.root", "node.a"}}}
	for _, n := range []models.Node{root, child} {
		if err := s.PutNode(ctx, n); err != nil {
			t.Fatalf("PutNode: %v", err)
		}
	}

	got, err := s.GetNode(ctx, "node.a")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Title != "Alpha" || got.FilePath.Owner() != "node.a" || got.FilePath.Parent() != "node.root" {
		t.Errorf("GetNode = %+v", got)
	}

	roots, err := s.RootNodes(ctx)
	if err != nil {
		t.Fatalf("RootNodes: %v", err)
	}
	if len(roots) != 1 || roots[0].NodeID != "node.root" || len(roots[0].FilePath.Children) != 1 {
		t.Errorf("roots = %+v", roots)
	}

	hits, err := s.SearchNodes(ctx, "quokka", 10)
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(hits) != 1 || hits[0].NodeID != "node.a" {
		t.Errorf("search hits = %+v", hits)
	}

	if err := s.DeleteNode(ctx, "node.a"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, err := s.GetNode(ctx, "node.a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	hits, _ = s.SearchNodes(ctx, "quokka", 10)
	if len(hits) != 0 {
		t.Errorf("deleted node still searchable: %+v", hits)
	}
}

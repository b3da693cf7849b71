package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/nodeservice"
	"github.com/starford/anchorage/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	db := testutil.TestDB(t)
	testutil.SeedTree(t, db, "node.a", "node.b")

	a := anchors.New(db, anchors.WithNodes(db))
	l := links.New(db, a, db)
	return New(Deps{
		Nodes:   nodeservice.NewService(db, a, l),
		Anchors: a,
		Links:   l,
		Linking: linking.NewController(a, l, linking.NewSession()),
		Graph:   linkgraph.NewBuilder(a, l, nil),
	})
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_node":
		result, err = srv.getNode(ctx, req)
	case "list_anchors":
		result, err = srv.listAnchors(ctx, req)
	case "list_links":
		result, err = srv.listLinks(ctx, req)
	case "start_link":
		result, err = srv.startLink(ctx, req)
	case "complete_link":
		result, err = srv.completeLink(ctx, req)
	case "cancel_link":
		result, err = srv.cancelLink(ctx, req)
	case "delete_link":
		result, err = srv.deleteLink(ctx, req)
	case "delete_anchor":
		result, err = srv.deleteAnchor(ctx, req)
	case "link_graph":
		result, err = srv.linkGraph(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetNode(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_node", map[string]interface{}{"node_id": "node.a"})
	if r.IsError {
		t.Fatalf("get_node failed: %s", resultText(r))
	}
	var n nodeservice.NodeDetail
	if err := json.Unmarshal([]byte(resultText(r)), &n); err != nil {
		t.Fatal(err)
	}
	if n.Title != "node.a" || n.Checksum == "" {
		t.Errorf("node = %+v", n)
	}

	r = callTool(t, srv, "get_node", map[string]interface{}{"node_id": "node.nope"})
	if !r.IsError {
		t.Error("expected error for missing node")
	}
}

func TestLinkLifecycle(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "start_link", map[string]interface{}{
		"node_id": "node.a",
		"extent":  `{"type":"text","startCharacter":4,"endCharacter":9,"text":"quick"}`,
	})
	if r.IsError {
		t.Fatalf("start_link: %s", resultText(r))
	}

	r = callTool(t, srv, "complete_link", map[string]interface{}{
		"node_id": "node.b",
		"title":   "same fox",
	})
	if r.IsError {
		t.Fatalf("complete_link: %s", resultText(r))
	}
	var res linking.Commit
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Link.Title != "same fox" {
		t.Errorf("commit = %+v", res)
	}

	r = callTool(t, srv, "list_anchors", map[string]interface{}{"node_id": "node.a"})
	if !strings.Contains(resultText(r), `"startCharacter": 4`) {
		t.Errorf("anchors = %s", resultText(r))
	}

	r = callTool(t, srv, "list_links", map[string]interface{}{"node_id": "node.b"})
	var menu []links.AnchorLinks
	if err := json.Unmarshal([]byte(resultText(r)), &menu); err != nil {
		t.Fatal(err)
	}
	if len(menu) != 1 || len(menu[0].Links) != 1 || menu[0].Links[0].OppNode.NodeID != "node.a" {
		t.Errorf("link menu = %+v", menu)
	}

	r = callTool(t, srv, "link_graph", map[string]interface{}{"node_id": "node.root", "format": "dot"})
	if text := resultText(r); !strings.Contains(text, "--") {
		t.Errorf("dot = %q", text)
	}

	r = callTool(t, srv, "delete_link", map[string]interface{}{"link_id": res.Link.LinkID})
	if r.IsError {
		t.Fatalf("delete_link: %s", resultText(r))
	}
	r = callTool(t, srv, "list_anchors", map[string]interface{}{"node_id": "node.a"})
	if text := resultText(r); text != "[]" && text != "null" {
		t.Errorf("anchors after delete = %s", text)
	}
}

func TestDeleteAnchor_RemovesLinksAndEdge(t *testing.T) {
	srv := testServer(t)

	callTool(t, srv, "start_link", map[string]interface{}{
		"node_id": "node.a",
		"extent":  `{"type":"text","startCharacter":0,"endCharacter":3}`,
	})
	r := callTool(t, srv, "complete_link", map[string]interface{}{"node_id": "node.b"})
	if r.IsError {
		t.Fatalf("complete_link: %s", resultText(r))
	}
	var res linking.Commit
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}

	r = callTool(t, srv, "delete_anchor", map[string]interface{}{"anchor_id": res.StartAnchor.AnchorID})
	if r.IsError {
		t.Fatalf("delete_anchor: %s", resultText(r))
	}

	r = callTool(t, srv, "link_graph", map[string]interface{}{"node_id": "node.root"})
	var g linkgraph.Graph
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil {
		t.Fatal(err)
	}
	if len(g.Edges) != 0 {
		t.Errorf("edges after delete_anchor = %+v", g.Edges)
	}
	for _, node := range []string{"node.a", "node.b"} {
		r = callTool(t, srv, "list_anchors", map[string]interface{}{"node_id": node})
		if text := resultText(r); text != "[]" && text != "null" {
			t.Errorf("anchors of %s = %s", node, text)
		}
	}

	r = callTool(t, srv, "delete_anchor", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without anchor_id")
	}
}

func TestCompleteLink_WithoutStart(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "complete_link", map[string]interface{}{"node_id": "node.b"})
	if !r.IsError {
		t.Error("expected error when no link was started")
	}
}

func TestStartLink_BadExtent(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "start_link", map[string]interface{}{
		"node_id": "node.a",
		"extent":  `{"type":"text"}`,
	})
	if !r.IsError {
		t.Error("expected error for incomplete extent")
	}
}

func TestCancelLink(t *testing.T) {
	srv := testServer(t)

	callTool(t, srv, "start_link", map[string]interface{}{"node_id": "node.a"})
	r := callTool(t, srv, "cancel_link", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"state": "idle"`) {
		t.Errorf("cancel = %s", resultText(r))
	}
	r = callTool(t, srv, "complete_link", map[string]interface{}{"node_id": "node.b"})
	if !r.IsError {
		t.Error("complete after cancel should fail")
	}
}

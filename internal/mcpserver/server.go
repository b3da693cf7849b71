// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Anchorage tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/nodeservice"
)

const extentResourceURI = "anchorage://extent-format"

// Deps are the services exposed as tools.
type Deps struct {
	Nodes   *nodeservice.Service
	Anchors *anchors.Registry
	Links   *links.Registry
	Linking *linking.Controller
	Graph   *linkgraph.Builder
}

// Server wraps the MCP server with Anchorage tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all Anchorage tools registered.
func New(d Deps) *Server {
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Anchorage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read a node with its title, content, path and children."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id (e.g. node.3f2a...)")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("list_anchors",
		mcp.WithDescription("List the anchors of a node."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id")),
	), s.listAnchors)

	s.mcp.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("List every anchor of a node with its links and the node and anchor on the far side of each."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id")),
	), s.listLinks)

	s.mcp.AddTool(mcp.NewTool("start_link",
		mcp.WithDescription("Start a link from an extent of a node. Nothing is stored until complete_link. "+
			"Read the anchorage://extent-format resource for the extent syntax."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node the link starts from")),
		mcp.WithString("extent", mcp.Description("Extent JSON; empty for the whole node")),
	), s.startLink)

	s.mcp.AddTool(mcp.NewTool("complete_link",
		mcp.WithDescription("Complete the started link at an extent of a node, creating anchors as needed."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node the link ends on")),
		mcp.WithString("extent", mcp.Description("Extent JSON; empty for the whole node")),
		mcp.WithString("title", mcp.Description("Link title")),
		mcp.WithString("explainer", mcp.Description("Why the two regions are linked")),
	), s.completeLink)

	s.mcp.AddTool(mcp.NewTool("cancel_link",
		mcp.WithDescription("Abandon the started link without storing anything."),
	), s.cancelLink)

	s.mcp.AddTool(mcp.NewTool("delete_link",
		mcp.WithDescription("Delete a link. Anchors left without links are deleted too."),
		mcp.WithString("link_id", mcp.Required(), mcp.Description("Link id")),
	), s.deleteLink)

	s.mcp.AddTool(mcp.NewTool("delete_anchor",
		mcp.WithDescription("Delete an anchor together with every link on it. Anchors on the far side left without links are deleted too."),
		mcp.WithString("anchor_id", mcp.Required(), mcp.Description("Anchor id")),
	), s.deleteAnchor)

	s.mcp.AddTool(mcp.NewTool("link_graph",
		mcp.WithDescription("Build the graph of links among the children of a node."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Parent node id")),
		mcp.WithString("format", mcp.Description("json (default) or dot")),
	), s.linkGraph)

	s.mcp.AddResource(
		mcp.NewResource(extentResourceURI, "Extent Format",
			mcp.WithResourceDescription("JSON form of the extents accepted by the linking tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readExtentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.d.Nodes.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(n)
}

func (s *Server) listAnchors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.d.Anchors.GetAnchorsByNodeID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) listLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	menu, err := s.d.Links.AnchorLinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(menu)
}

// selectArg records the node_id and extent arguments as the selection.
func (s *Server) selectArg(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return "", err
	}
	if _, err := s.d.Nodes.GetNode(ctx, nodeID); err != nil {
		return "", err
	}
	e, err := extent.Unmarshal([]byte(req.GetString("extent", "")))
	if err != nil {
		return "", err
	}
	if _, err := s.d.Linking.Select(nodeID, e); err != nil {
		return "", err
	}
	return nodeID, nil
}

func (s *Server) startLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := s.selectArg(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.d.Linking.StartLink(nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap)
}

func (s *Server) completeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := s.selectArg(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.d.Linking.CompleteLink(ctx, nodeID, req.GetString("title", ""), req.GetString("explainer", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) cancelLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.d.Linking.Cancel())
}

func (s *Server) deleteLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("link_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.d.Links.DeleteLink(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) deleteAnchor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("anchor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.d.Links.DeleteAnchorWithLinks(ctx, id, metrics.ReasonExplicit); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) linkGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	children, err := s.d.Nodes.Children(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.d.Graph.Build(ctx, children)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "json") == "dot" {
		return mcp.NewToolResultText(linkgraph.ToDOT(g)), nil
	}
	return jsonResult(g)
}

func (s *Server) readExtentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      extentResourceURI,
			MIMEType: "text/markdown",
			Text:     ExtentFormatContract,
		},
	}, nil
}

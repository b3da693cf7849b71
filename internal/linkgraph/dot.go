package linkgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT renders g as an undirected Graphviz graph, one vertex per sibling
// labelled by title and one edge per link.
func ToDOT(g Graph) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := n.Title
		if label == "" {
			label = n.NodeID
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.NodeID, label)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.Title != "" {
			fmt.Fprintf(&buf, "  %q -- %q [label=%q];\n", e.Source, e.Target, e.Title)
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out g with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, g Graph) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(ToDOT(g)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

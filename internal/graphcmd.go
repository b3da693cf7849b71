package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/gateway"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/models"
)

// GraphOptions configures PrintGraph.
type GraphOptions struct {
	Server string
	Token  string
	NodeID string
	SVG    bool
}

// PrintGraph builds the link graph of a node's children against a remote
// server and writes it to w as DOT, or as SVG when opts.SVG is set.
func PrintGraph(ctx context.Context, w io.Writer, opts GraphOptions) error {
	c := gateway.New(opts.Server, gateway.WithToken(opts.Token))

	parent, err := c.GetNode(ctx, opts.NodeID)
	if err != nil {
		return fmt.Errorf("get node %s: %w", opts.NodeID, err)
	}
	children := make([]models.Node, 0, len(parent.FilePath.Children))
	for _, id := range parent.FilePath.Children {
		n, err := c.GetNode(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get child %s: %w", id, err)
		}
		children = append(children, n)
	}

	g, err := linkgraph.NewBuilder(c, c, slog.Default()).Build(ctx, children)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	if opts.SVG {
		svg, err := linkgraph.RenderSVG(ctx, g)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	_, err = io.WriteString(w, linkgraph.ToDOT(g))
	return err
}

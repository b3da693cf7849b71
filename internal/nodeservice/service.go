// Package nodeservice is the node collaborator: a flat node arena keyed by id
// with parent/child relations kept as id sets, and node deletion that
// cascades to anchors and links.
package nodeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/checksum"
	"github.com/starford/anchorage/internal/ids"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
)

// Event names passed to the notify hook.
const (
	EventCreated = "node.created"
	EventUpdated = "node.updated"
	EventDeleted = "node.deleted"
)

// NodeDetail is a node with its edit checksum.
type NodeDetail struct {
	models.Node
	Checksum string `json:"checksum"`
}

// CreateInput describes a new node. An empty ParentID creates a root.
type CreateInput struct {
	ParentID string          `json:"parentId"`
	Type     models.NodeType `json:"type"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
}

// Service coordinates the node store with the anchor and link registries.
type Service struct {
	nodes   store.NodeStore
	anchors *anchors.Registry
	links   *links.Registry
	log     *slog.Logger
	notify  func(event, id string)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithNotify registers a hook called after every committed mutation.
func WithNotify(fn func(event, id string)) Option {
	return func(s *Service) { s.notify = fn }
}

// NewService creates a node service.
func NewService(nodes store.NodeStore, a *anchors.Registry, l *links.Registry, opts ...Option) *Service {
	s := &Service{nodes: nodes, anchors: a, links: l, log: slog.Default(), notify: func(string, string) {}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func detail(n models.Node) *NodeDetail {
	if n.FilePath.Children == nil {
		n.FilePath.Children = []string{}
	}
	return &NodeDetail{Node: n, Checksum: checksum.Node(n.Title, n.Content)}
}

// GetNode returns a node by id.
func (s *Service) GetNode(ctx context.Context, nodeID string) (*NodeDetail, error) {
	n, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return detail(n), nil
}

// CreateNode mints an id, stores the node under its parent and adds it to the
// parent's children.
func (s *Service) CreateNode(ctx context.Context, in CreateInput) (*NodeDetail, error) {
	id := ids.New(ids.KindNode)
	n := models.Node{
		NodeID:      id,
		Type:        in.Type,
		Title:       in.Title,
		Content:     in.Content,
		FilePath:    models.FilePath{Path: []string{id}, Children: []string{}},
		DateCreated: time.Now().UTC(),
	}

	var parent models.Node
	if in.ParentID != "" {
		p, err := s.nodes.GetNode(ctx, in.ParentID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent %s does not exist", apperr.ErrInvalidReference, in.ParentID)
		}
		if err != nil {
			return nil, err
		}
		parent = p
		n.FilePath.Path = append(append([]string{}, p.FilePath.Path...), id)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	if err := s.nodes.PutNode(ctx, n); err != nil {
		return nil, err
	}
	if in.ParentID != "" {
		parent.FilePath.AddChild(id)
		if err := s.nodes.PutNode(ctx, parent); err != nil {
			return nil, fmt.Errorf("attach %s to parent %s: %w", id, in.ParentID, err)
		}
	}
	s.notify(EventCreated, id)
	s.log.Info("nodes: created", slog.String("node", id), slog.String("type", string(n.Type)))
	return detail(n), nil
}

// UpdateNode replaces a node's title and content. A non-empty ifMatch must
// equal the node's current checksum.
func (s *Service) UpdateNode(ctx context.Context, nodeID, title, content, ifMatch string) (*NodeDetail, error) {
	n, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Node(n.Title, n.Content) {
		return nil, fmt.Errorf("%w: node %s was modified", apperr.ErrConflict, nodeID)
	}
	n.Title, n.Content = title, content
	if err := s.nodes.PutNode(ctx, n); err != nil {
		return nil, err
	}
	s.notify(EventUpdated, nodeID)
	return detail(n), nil
}

// Children resolves a node's children through the arena. Ids that no longer
// resolve are skipped.
func (s *Service) Children(ctx context.Context, nodeID string) ([]models.Node, error) {
	n, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Node, 0, len(n.FilePath.Children))
	for _, id := range n.FilePath.Children {
		c, err := s.nodes.GetNode(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Roots returns the nodes without a parent.
func (s *Service) Roots(ctx context.Context) ([]models.Node, error) {
	return s.nodes.RootNodes(ctx)
}

// Search matches titles and content.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Node, error) {
	if query == "" {
		return []models.Node{}, nil
	}
	return s.nodes.SearchNodes(ctx, query, limit)
}

// DeleteNode removes a node and its descendants. For each removed node every
// link touching one of its anchors is deleted through the link registry, then
// the anchors themselves. Finally the node is detached from its parent.
func (s *Service) DeleteNode(ctx context.Context, nodeID string) error {
	n, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := s.deleteSubtree(ctx, n); err != nil {
		return err
	}

	if parentID := n.FilePath.Parent(); parentID != "" {
		p, err := s.nodes.GetNode(ctx, parentID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return err
		default:
			p.FilePath.RemoveChild(nodeID)
			if err := s.nodes.PutNode(ctx, p); err != nil {
				return fmt.Errorf("detach %s from parent %s: %w", nodeID, parentID, err)
			}
		}
	}
	s.notify(EventDeleted, nodeID)
	s.log.Info("nodes: deleted", slog.String("node", nodeID))
	return nil
}

func (s *Service) deleteSubtree(ctx context.Context, n models.Node) error {
	for _, childID := range n.FilePath.Children {
		c, err := s.nodes.GetNode(ctx, childID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.deleteSubtree(ctx, c); err != nil {
			return err
		}
	}
	if err := s.detachAnchors(ctx, n.NodeID); err != nil {
		return err
	}
	return s.nodes.DeleteNode(ctx, n.NodeID)
}

func (s *Service) detachAnchors(ctx context.Context, nodeID string) error {
	list, err := s.anchors.GetAnchorsByNodeID(ctx, nodeID)
	if err != nil {
		return err
	}
	var errs []error
	for _, a := range list {
		if err := s.links.DeleteAnchorWithLinks(ctx, a.AnchorID, metrics.ReasonNode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

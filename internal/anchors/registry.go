// Package anchors is the Anchor Registry: CRUD over anchors with the
// (node, extent) uniqueness rule enforced on every write.
package anchors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/ids"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
)

// Event names passed to the notify hook.
const (
	EventCreated = "anchor.created"
	EventUpdated = "anchor.updated"
	EventDeleted = "anchor.deleted"
)

// Registry wraps an AnchorStore.
type Registry struct {
	store  store.AnchorStore
	nodes  store.NodeReader
	log    *slog.Logger
	notify func(event, id string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithNotify registers a hook called after every committed mutation.
func WithNotify(fn func(event, id string)) Option {
	return func(r *Registry) { r.notify = fn }
}

// WithNodes makes CreateAnchor reject anchors whose owning node does not
// resolve through nodes.
func WithNodes(nodes store.NodeReader) Option {
	return func(r *Registry) { r.nodes = nodes }
}

// New returns a Registry persisting through s.
func New(s store.AnchorStore, opts ...Option) *Registry {
	r := &Registry{store: s, log: slog.Default(), notify: func(string, string) {}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FindAnchor returns the anchor on nodeID whose extent equals e.
func (r *Registry) FindAnchor(ctx context.Context, nodeID string, e extent.Extent) (models.Anchor, bool, error) {
	list, err := r.store.GetAnchorsByNodeID(ctx, nodeID)
	if err != nil {
		return models.Anchor{}, false, err
	}
	a, ok := models.FindByExtent(list, nodeID, e)
	return a, ok, nil
}

// Resolve returns the existing anchor for (nodeID, e) or, when there is none,
// an unpersisted anchor carrying mintID. existing reports which one it is.
func (r *Registry) Resolve(ctx context.Context, nodeID string, e extent.Extent, mintID string) (a models.Anchor, existing bool, err error) {
	found, ok, err := r.FindAnchor(ctx, nodeID, e)
	if err != nil {
		return models.Anchor{}, false, err
	}
	if ok {
		return found, true, nil
	}
	return models.Anchor{AnchorID: mintID, NodeID: nodeID, Extent: extent.Normalize(e)}, false, nil
}

// CreateAnchor persists a. An empty AnchorID is minted. It fails with
// apperr.ErrConflict when nodeID already has an anchor on an equal extent;
// callers look up first with FindAnchor. With WithNodes set, an unknown
// owning node is apperr.ErrInvalidReference.
func (r *Registry) CreateAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error) {
	if a.AnchorID == "" {
		a.AnchorID = ids.New(ids.KindAnchor)
	}
	a.Extent = extent.Normalize(a.Extent)
	if err := a.Validate(); err != nil {
		return models.Anchor{}, err
	}

	if err := r.requireNode(ctx, a.NodeID); err != nil {
		return models.Anchor{}, err
	}
	if dup, ok, err := r.FindAnchor(ctx, a.NodeID, a.Extent); err != nil {
		return models.Anchor{}, err
	} else if ok {
		return models.Anchor{}, fmt.Errorf("%w: node %s already has anchor %s on %s",
			apperr.ErrConflict, a.NodeID, dup.AnchorID, extent.Label(a.Extent))
	}

	created, err := r.store.CreateAnchor(ctx, a)
	if err != nil {
		return models.Anchor{}, err
	}
	metrics.AnchorsCreated.Inc()
	r.notify(EventCreated, created.AnchorID)
	r.log.Debug("anchors: created",
		slog.String("anchor", created.AnchorID),
		slog.String("node", created.NodeID),
		slog.String("extent", extent.Key(created.Extent)),
	)
	return created, nil
}

func (r *Registry) requireNode(ctx context.Context, nodeID string) error {
	if r.nodes == nil {
		return nil
	}
	_, err := r.nodes.GetNode(ctx, nodeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: node %s does not exist", apperr.ErrInvalidReference, nodeID)
	}
	return err
}

// GetAnchor returns the anchor with the given id.
func (r *Registry) GetAnchor(ctx context.Context, anchorID string) (models.Anchor, error) {
	return r.store.GetAnchor(ctx, anchorID)
}

// GetAnchorsByNodeID returns every anchor on nodeID, in no particular order.
func (r *Registry) GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error) {
	return r.store.GetAnchorsByNodeID(ctx, nodeID)
}

// UpdateExtent repositions an anchor, e.g. after text offsets shift.
func (r *Registry) UpdateExtent(ctx context.Context, anchorID string, e extent.Extent) (models.Anchor, error) {
	e = extent.Normalize(e)
	if err := extent.Validate(e); err != nil {
		return models.Anchor{}, err
	}
	a, err := r.store.UpdateExtent(ctx, anchorID, e)
	if err != nil {
		return models.Anchor{}, err
	}
	r.notify(EventUpdated, anchorID)
	return a, nil
}

// DeleteAnchor removes an anchor. It is idempotent and does not touch links.
func (r *Registry) DeleteAnchor(ctx context.Context, anchorID string) error {
	return r.Remove(ctx, anchorID, metrics.ReasonExplicit)
}

// Remove is DeleteAnchor with the reason recorded in metrics and logs.
func (r *Registry) Remove(ctx context.Context, anchorID, reason string) error {
	if err := r.store.DeleteAnchor(ctx, anchorID); err != nil {
		return fmt.Errorf("delete anchor %s: %w", anchorID, err)
	}
	metrics.AnchorsDeleted.WithLabelValues(reason).Inc()
	r.notify(EventDeleted, anchorID)
	r.log.Debug("anchors: deleted", slog.String("anchor", anchorID), slog.String("reason", reason))
	return nil
}

// Package links is the Link Registry: undirected links between two existing
// anchors, plus the cleanup of anchors a deleted link leaves orphaned.
package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/ids"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
)

// Event names passed to the notify hook.
const (
	EventCreated = "link.created"
	EventDeleted = "link.deleted"
)

// Registry wraps a LinkStore. Anchor existence is checked through the anchor
// registry; node lookups serve the link menu.
type Registry struct {
	store   store.LinkStore
	anchors *anchors.Registry
	nodes   store.NodeReader
	log     *slog.Logger
	notify  func(event, id string)
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

// New returns a Registry.
func New(s store.LinkStore, a *anchors.Registry, nodes store.NodeReader, opts ...Option) *Registry {
	r := &Registry{store: s, anchors: a, nodes: nodes, log: slog.Default(), notify: func(string, string) {}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// CreateLink persists l after checking that both anchors exist. An empty
// LinkID is minted and the node ids are taken from the anchors. Duplicate
// links between the same pair of anchors are allowed.
func (r *Registry) CreateLink(ctx context.Context, l models.Link) (models.Link, error) {
	if l.LinkID == "" {
		l.LinkID = ids.New(ids.KindLink)
	}
	if err := l.Validate(); err != nil {
		return models.Link{}, err
	}

	a1, err := r.requireAnchor(ctx, l.Anchor1ID)
	if err != nil {
		return models.Link{}, err
	}
	a2, err := r.requireAnchor(ctx, l.Anchor2ID)
	if err != nil {
		return models.Link{}, err
	}
	l.Anchor1NodeID, l.Anchor2NodeID = a1.NodeID, a2.NodeID
	if l.DateCreated.IsZero() {
		l.DateCreated = time.Now().UTC()
	}

	created, err := r.store.CreateLink(ctx, l)
	if err != nil {
		return models.Link{}, err
	}
	metrics.LinksCreated.Inc()
	r.notify(EventCreated, created.LinkID)
	r.log.Info("links: created",
		slog.String("link", created.LinkID),
		slog.String("anchor1", created.Anchor1ID),
		slog.String("anchor2", created.Anchor2ID),
	)
	return created, nil
}

func (r *Registry) requireAnchor(ctx context.Context, anchorID string) (models.Anchor, error) {
	a, err := r.anchors.GetAnchor(ctx, anchorID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Anchor{}, fmt.Errorf("%w: anchor %s does not exist", apperr.ErrInvalidReference, anchorID)
	}
	return a, err
}

// GetLink returns the link with the given id.
func (r *Registry) GetLink(ctx context.Context, linkID string) (models.Link, error) {
	return r.store.GetLink(ctx, linkID)
}

// GetLinksByAnchorID returns every link with anchorID on either side.
func (r *Registry) GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error) {
	return r.store.GetLinksByAnchorID(ctx, anchorID)
}

// DeleteLink removes a link and then every endpoint anchor that no longer
// participates in any link. Deleting a missing link is a no-op.
func (r *Registry) DeleteLink(ctx context.Context, linkID string) error {
	l, err := r.store.GetLink(ctx, linkID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.store.DeleteLink(ctx, linkID); err != nil {
		return err
	}
	metrics.LinksDeleted.Inc()
	r.notify(EventDeleted, linkID)
	r.log.Info("links: deleted", slog.String("link", linkID))

	return r.cleanupAnchors(ctx, l.Anchor1ID, l.Anchor2ID)
}

// cleanupAnchors deletes each anchor iff it has no links left.
func (r *Registry) cleanupAnchors(ctx context.Context, anchorIDs ...string) error {
	var errs []error
	seen := map[string]bool{}
	for _, id := range anchorIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		remaining, err := r.store.GetLinksByAnchorID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("links of anchor %s: %w", id, err))
			continue
		}
		if len(remaining) > 0 {
			continue
		}
		if err := r.anchors.Remove(ctx, id, metrics.ReasonOrphaned); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteLinks deletes each link in turn. Failures do not stop the batch; they
// are reported together.
func (r *Registry) DeleteLinks(ctx context.Context, linkIDs []string) error {
	var errs []error
	for _, id := range linkIDs {
		if err := r.DeleteLink(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("link %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// DeleteAnchorWithLinks removes every link touching anchorID in one store
// batch, cleans up far-side anchors left orphaned, then removes the anchor
// itself with the given metrics reason. A missing anchor is a no-op.
func (r *Registry) DeleteAnchorWithLinks(ctx context.Context, anchorID, reason string) error {
	if _, err := r.anchors.GetAnchor(ctx, anchorID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	ls, err := r.store.GetLinksByAnchorID(ctx, anchorID)
	if err != nil {
		return fmt.Errorf("links of anchor %s: %w", anchorID, err)
	}

	var errs []error
	if len(ls) > 0 {
		linkIDs := make([]string, 0, len(ls))
		far := make([]string, 0, len(ls))
		for _, l := range ls {
			linkIDs = append(linkIDs, l.LinkID)
			other := l.Anchor1ID
			if other == anchorID {
				other = l.Anchor2ID
			}
			if other != anchorID {
				far = append(far, other)
			}
		}
		if err := r.store.DeleteLinks(ctx, linkIDs); err != nil {
			return fmt.Errorf("delete links of anchor %s: %w", anchorID, err)
		}
		for _, id := range linkIDs {
			metrics.LinksDeleted.Inc()
			r.notify(EventDeleted, id)
		}
		r.log.Info("links: deleted with anchor",
			slog.String("anchor", anchorID),
			slog.Int("links", len(linkIDs)),
		)
		if err := r.cleanupAnchors(ctx, far...); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.anchors.Remove(ctx, anchorID, reason); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Destination is where following a link leads. SelectedAnchorIDs are the
// link's two anchors, highlighted on arrival.
type Destination struct {
	NodeID            string      `json:"nodeId"`
	SelectedAnchorIDs []string    `json:"selectedAnchorIds"`
	Link              models.Link `json:"link"`
}

// FollowLink resolves the node on the other side of linkID as seen from
// fromNodeID. A self-link leads back to the same node.
func (r *Registry) FollowLink(ctx context.Context, linkID, fromNodeID string) (Destination, error) {
	l, err := r.store.GetLink(ctx, linkID)
	if err != nil {
		return Destination{}, err
	}
	var to string
	switch fromNodeID {
	case l.Anchor1NodeID:
		to = l.Anchor2NodeID
	case l.Anchor2NodeID:
		to = l.Anchor1NodeID
	default:
		return Destination{}, fmt.Errorf("%w: link %s does not touch node %s", apperr.ErrInvalidArgument, linkID, fromNodeID)
	}
	return Destination{
		NodeID:            to,
		SelectedAnchorIDs: []string{l.Anchor1ID, l.Anchor2ID},
		Link:              l,
	}, nil
}

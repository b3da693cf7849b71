// Package linking drives the two-step linking flow: pick a region, start a
// link, pick a second region, complete it. It also owns the session version
// and the selection state views render from.
package linking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/ids"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
)

// State of the linking state machine.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_second_extent"
)

// Transition labels recorded in metrics.
const (
	transitionStart    = "start"
	transitionComplete = "complete"
	transitionCancel   = "cancel"
	transitionRefused  = "refused"
	transitionFailed   = "failed"
	transitionStale    = "stale"
)

// Selection is the region currently picked on a node.
type Selection struct {
	NodeID       string       `json:"nodeId"`
	Extent       extent.Value `json:"extent"`
	Unresolvable bool         `json:"unresolvable,omitempty"`
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	State             State          `json:"state"`
	Version           uint64         `json:"version"`
	Selection         *Selection     `json:"selection,omitempty"`
	StartAnchor       *models.Anchor `json:"startAnchor,omitempty"`
	SelectedAnchorIDs []string       `json:"selectedAnchorIds"`
}

// Commit is the outcome of CompleteLink. Applied is false when the linking
// session was cancelled while the commit was in flight: the link was
// persisted but local state was left alone.
type Commit struct {
	Link        models.Link   `json:"link"`
	StartAnchor models.Anchor `json:"startAnchor"`
	EndAnchor   models.Anchor `json:"endAnchor"`
	Version     uint64        `json:"version"`
	Applied     bool          `json:"applied"`
}

// Controller is the linking state machine of one editor session. It is safe
// for concurrent use; gateway calls run without the lock held.
type Controller struct {
	anchors *anchors.Registry
	links   *links.Registry
	session *Session
	refresh func(version uint64)
	log     *slog.Logger

	mu         sync.Mutex
	state      State
	selection  *Selection
	start      *models.Anchor
	selected   []string
	epoch      uint64
	committing bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRefresh registers the hook signalled after a successful commit.
func WithRefresh(fn func(version uint64)) Option {
	return func(c *Controller) { c.refresh = fn }
}

// NewController returns an idle controller.
func NewController(a *anchors.Registry, l *links.Registry, s *Session, opts ...Option) *Controller {
	c := &Controller{
		anchors: a,
		links:   l,
		session: s,
		refresh: func(uint64) {},
		log:     slog.Default(),
		state:   StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:             c.state,
		Version:           c.session.Version(),
		SelectedAnchorIDs: slices.Clone(c.selected),
	}
	if s.SelectedAnchorIDs == nil {
		s.SelectedAnchorIDs = []string{}
	}
	if c.selection != nil {
		sel := *c.selection
		s.Selection = &sel
	}
	if c.start != nil {
		a := *c.start
		s.StartAnchor = &a
	}
	return s
}

// Select records e on nodeID as the current selection. It never creates an
// anchor.
func (c *Controller) Select(nodeID string, e extent.Extent) (Snapshot, error) {
	e = extent.Normalize(e)
	if nodeID == "" {
		return Snapshot{}, fmt.Errorf("%w: node id is required", apperr.ErrInvalidArgument)
	}
	if err := extent.Validate(e); err != nil {
		return Snapshot{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = &Selection{NodeID: nodeID, Extent: extent.Of(e)}
	return c.snapshotLocked(), nil
}

// MarkUnresolvable records that the selection on nodeID cannot be reduced to
// one extent, e.g. an ambiguous overlapping selection.
func (c *Controller) MarkUnresolvable(nodeID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = &Selection{NodeID: nodeID, Extent: extent.Of(nil), Unresolvable: true}
	return c.snapshotLocked()
}

// SelectAnchor makes an existing anchor the selection and highlights it along
// with the anchors on the far side of its links.
func (c *Controller) SelectAnchor(ctx context.Context, anchorID string) (Snapshot, error) {
	a, err := c.anchors.GetAnchor(ctx, anchorID)
	if err != nil {
		return Snapshot{}, err
	}
	ls, err := c.links.GetLinksByAnchorID(ctx, anchorID)
	if err != nil {
		return Snapshot{}, err
	}
	selected := []string{a.AnchorID}
	for _, l := range ls {
		if opp, _, ok := l.Opposite(a.AnchorID); ok && !slices.Contains(selected, opp) {
			selected = append(selected, opp)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = &Selection{NodeID: a.NodeID, Extent: extent.Of(a.Extent)}
	c.selected = selected
	return c.snapshotLocked(), nil
}

// ClearSelection drops highlighted anchors and resets the selection to the
// whole node.
func (c *Controller) ClearSelection() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
	c.selection = nil
	return c.snapshotLocked()
}

// selectionLocked resolves the extent to use on nodeID. Without a selection
// on that node the whole node is used.
func (c *Controller) selectionLocked(nodeID string) (extent.Extent, error) {
	if c.selection == nil || c.selection.NodeID != nodeID {
		return extent.None{}, nil
	}
	if c.selection.Unresolvable {
		return nil, fmt.Errorf("%w: the selection on node %s does not resolve to one region", apperr.ErrUnresolvable, nodeID)
	}
	return c.selection.Extent.Get(), nil
}

// StartLink remembers a candidate start anchor for the selection on nodeID and
// enters linking mode. Starting again while awaiting replaces the candidate.
// Nothing is persisted.
func (c *Controller) StartLink(nodeID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committing {
		metrics.LinkingTransitions.WithLabelValues(transitionRefused).Inc()
		return c.snapshotLocked(), fmt.Errorf("%w: a link is being completed", apperr.ErrInvalidState)
	}
	e, err := c.selectionLocked(nodeID)
	if err != nil {
		metrics.LinkingTransitions.WithLabelValues(transitionRefused).Inc()
		return c.snapshotLocked(), err
	}

	c.start = &models.Anchor{AnchorID: ids.New(ids.KindAnchor), NodeID: nodeID, Extent: e}
	c.state = StateAwaiting
	metrics.LinkingTransitions.WithLabelValues(transitionStart).Inc()
	c.log.Debug("linking: started", slog.String("node", nodeID), slog.String("extent", extent.Key(e)))
	return c.snapshotLocked(), nil
}

// Cancel leaves linking mode without persisting anything. A commit still in
// flight completes remotely but no longer changes local state.
func (c *Controller) Cancel() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaiting {
		metrics.LinkingTransitions.WithLabelValues(transitionCancel).Inc()
		c.log.Debug("linking: cancelled")
	}
	c.epoch++
	c.state = StateIdle
	c.start = nil
	c.selection = nil
	c.committing = false
	return c.snapshotLocked()
}

// CompleteLink links the start anchor to the selection on nodeID.
//
// Both ends resolve to an existing anchor with an equal extent when there is
// one; otherwise a fresh anchor is persisted. Linking a region to itself is an
// invalid reference. Any failure returns the machine to idle; anchors created
// before the failure are kept. An unresolvable selection is refused without
// leaving linking mode.
func (c *Controller) CompleteLink(ctx context.Context, nodeID, title, explainer string) (Commit, error) {
	c.mu.Lock()
	if c.state != StateAwaiting || c.start == nil {
		c.mu.Unlock()
		metrics.LinkingTransitions.WithLabelValues(transitionRefused).Inc()
		return Commit{}, fmt.Errorf("%w: no link has been started", apperr.ErrInvalidState)
	}
	if c.committing {
		c.mu.Unlock()
		metrics.LinkingTransitions.WithLabelValues(transitionRefused).Inc()
		return Commit{}, fmt.Errorf("%w: a link is already being completed", apperr.ErrInvalidState)
	}
	endExt, err := c.selectionLocked(nodeID)
	if err != nil {
		c.mu.Unlock()
		metrics.LinkingTransitions.WithLabelValues(transitionRefused).Inc()
		return Commit{}, err
	}
	start := *c.start
	epoch := c.epoch
	c.committing = true
	c.mu.Unlock()

	res, err := c.commit(ctx, start, nodeID, endExt, title, explainer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		metrics.LinkingTransitions.WithLabelValues(transitionStale).Inc()
		c.log.Info("linking: commit finished after cancel", slog.Bool("failed", err != nil))
		return res, err
	}
	c.committing = false
	c.state = StateIdle
	c.start = nil
	if err != nil {
		metrics.LinkingTransitions.WithLabelValues(transitionFailed).Inc()
		c.log.Warn("linking: commit failed", slog.String("error", err.Error()))
		return Commit{}, err
	}

	c.selection = &Selection{NodeID: nodeID, Extent: extent.Of(endExt)}
	c.selected = []string{res.EndAnchor.AnchorID, res.StartAnchor.AnchorID}
	res.Version = c.session.Bump()
	res.Applied = true
	metrics.LinkingTransitions.WithLabelValues(transitionComplete).Inc()
	c.refresh(res.Version)
	return res, nil
}

func (c *Controller) commit(ctx context.Context, start models.Anchor, nodeID string, endExt extent.Extent, title, explainer string) (Commit, error) {
	if nodeID == start.NodeID && extent.Equal(endExt, start.Extent) {
		return Commit{}, fmt.Errorf("%w: cannot link %s on node %s to itself",
			apperr.ErrInvalidReference, extent.Label(endExt), nodeID)
	}

	startA, startExists, err := c.anchors.Resolve(ctx, start.NodeID, start.Extent, start.AnchorID)
	if err != nil {
		return Commit{}, fmt.Errorf("resolve start anchor: %w", err)
	}
	endA, endExists, err := c.anchors.Resolve(ctx, nodeID, endExt, ids.New(ids.KindAnchor))
	if err != nil {
		return Commit{}, fmt.Errorf("resolve end anchor: %w", err)
	}

	if !startExists {
		if startA, err = c.anchors.CreateAnchor(ctx, startA); err != nil {
			return Commit{}, fmt.Errorf("create start anchor: %w", err)
		}
	}
	if !endExists {
		if endA, err = c.anchors.CreateAnchor(ctx, endA); err != nil {
			return Commit{}, fmt.Errorf("create end anchor: %w", err)
		}
	}

	l, err := c.links.CreateLink(ctx, models.Link{
		LinkID:    ids.New(ids.KindLink),
		Anchor1ID: startA.AnchorID,
		Anchor2ID: endA.AnchorID,
		Title:     title,
		Explainer: explainer,
	})
	if err != nil {
		return Commit{}, fmt.Errorf("create link: %w", err)
	}
	return Commit{Link: l, StartAnchor: startA, EndAnchor: endA}, nil
}

// Package store defines the persistence contracts the registries talk to.
//
// Implementations answer every call atomically and report absence with
// apperr.ErrNotFound and duplicates with apperr.ErrConflict. They never apply
// domain rules beyond that: anchor existence for links and anchor cleanup
// belong to the registries.
package store

import (
	"context"

	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
)

// AnchorStore persists anchors.
type AnchorStore interface {
	CreateAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error)
	GetAnchor(ctx context.Context, anchorID string) (models.Anchor, error)
	GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error)
	UpdateExtent(ctx context.Context, anchorID string, e extent.Extent) (models.Anchor, error)
	// DeleteAnchor is idempotent.
	DeleteAnchor(ctx context.Context, anchorID string) error
}

// LinkStore persists links.
type LinkStore interface {
	CreateLink(ctx context.Context, l models.Link) (models.Link, error)
	GetLink(ctx context.Context, linkID string) (models.Link, error)
	GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error)
	// DeleteLink is idempotent.
	DeleteLink(ctx context.Context, linkID string) error
	DeleteLinks(ctx context.Context, linkIDs []string) error
}

// NodeReader is the read-only node contract consumed by the link core.
type NodeReader interface {
	GetNode(ctx context.Context, nodeID string) (models.Node, error)
}

// NodeStore is the full node repository used by the node collaborator.
type NodeStore interface {
	NodeReader
	PutNode(ctx context.Context, n models.Node) error
	DeleteNode(ctx context.Context, nodeID string) error
	RootNodes(ctx context.Context) ([]models.Node, error)
	SearchNodes(ctx context.Context, query string, limit int) ([]models.Node, error)
}

// Store bundles every contract a backend provides.
type Store interface {
	AnchorStore
	LinkStore
	NodeStore
	Close() error
}

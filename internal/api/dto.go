package api

import (
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/linking"
)

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	ParentID string `json:"parentId" example:"node.3f2a"`
	Type     string `json:"type" example:"text" validate:"required"`
	Title    string `json:"title" example:"Hello"`
	Content  string `json:"content" example:"Some text"`
}

// UpdateNodeRequest is the request body for editing a node.
type UpdateNodeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateExtentRequest is the request body for repositioning an anchor.
type UpdateExtentRequest struct {
	Extent extent.Value `json:"extent"`
}

// DeleteLinksRequest is the request body for batch link deletion.
type DeleteLinksRequest struct {
	LinkIDs []string `json:"linkIds" validate:"required"`
}

// DragRequest describes a rectangle dragged over an image node.
type DragRequest struct {
	From linking.Point `json:"from"`
	To   linking.Point `json:"to"`
}

// SelectRequest records a selection. Drag, when set, takes precedence over
// Extent. Unresolvable marks an ambiguous selection.
type SelectRequest struct {
	NodeID       string       `json:"nodeId" validate:"required"`
	Extent       extent.Value `json:"extent"`
	Drag         *DragRequest `json:"drag,omitempty"`
	Unresolvable bool         `json:"unresolvable,omitempty"`
}

// SelectAnchorRequest selects an existing anchor.
type SelectAnchorRequest struct {
	AnchorID string `json:"anchorId" validate:"required"`
}

// StartLinkRequest starts a link from the selection on NodeID.
type StartLinkRequest struct {
	NodeID string `json:"nodeId" validate:"required"`
}

// CompleteLinkRequest completes the pending link on NodeID.
type CompleteLinkRequest struct {
	NodeID    string `json:"nodeId" validate:"required"`
	Title     string `json:"title"`
	Explainer string `json:"explainer"`
}


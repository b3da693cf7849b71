package models

import (
	"fmt"
	"time"

	"github.com/starford/anchorage/internal/apperr"
)

// Link is an undirected, titled connection between two anchors. The node ids
// are denormalized copies of the anchors' owners.
type Link struct {
	LinkID        string    `json:"linkId"`
	Anchor1ID     string    `json:"anchor1Id"`
	Anchor2ID     string    `json:"anchor2Id"`
	Anchor1NodeID string    `json:"anchor1NodeId"`
	Anchor2NodeID string    `json:"anchor2NodeId"`
	Title         string    `json:"title"`
	Explainer     string    `json:"explainer"`
	DateCreated   time.Time `json:"dateCreated"`
}

// Touches reports whether anchorID is either end of the link.
func (l Link) Touches(anchorID string) bool {
	return l.Anchor1ID == anchorID || l.Anchor2ID == anchorID
}

// Opposite returns the anchor and node on the other side of anchorID.
func (l Link) Opposite(anchorID string) (oppAnchorID, oppNodeID string, ok bool) {
	switch anchorID {
	case l.Anchor1ID:
		return l.Anchor2ID, l.Anchor2NodeID, true
	case l.Anchor2ID:
		return l.Anchor1ID, l.Anchor1NodeID, true
	}
	return "", "", false
}

// NodePairKey is an order-independent key of the two endpoint nodes.
func (l Link) NodePairKey() string {
	a, b := l.Anchor1NodeID, l.Anchor2NodeID
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Validate checks that the link names two distinct anchors.
func (l Link) Validate() error {
	if l.LinkID == "" {
		return fmt.Errorf("%w: link id is required", apperr.ErrInvalidArgument)
	}
	if l.Anchor1ID == "" || l.Anchor2ID == "" {
		return fmt.Errorf("%w: link %s must name two anchors", apperr.ErrInvalidReference, l.LinkID)
	}
	if l.Anchor1ID == l.Anchor2ID {
		return fmt.Errorf("%w: link %s connects anchor %s to itself", apperr.ErrInvalidReference, l.LinkID, l.Anchor1ID)
	}
	return nil
}

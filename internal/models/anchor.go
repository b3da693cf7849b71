package models

import (
	"encoding/json"
	"fmt"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/extent"
)

// Anchor is a persisted reference to one extent on one node.
// (NodeID, Extent) is unique under extent.Equal.
type Anchor struct {
	AnchorID string
	NodeID   string
	Extent   extent.Extent
}

type anchorJSON struct {
	AnchorID string       `json:"anchorId"`
	NodeID   string       `json:"nodeId"`
	Extent   extent.Value `json:"extent"`
}

// MarshalJSON implements json.Marshaler.
func (a Anchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(anchorJSON{AnchorID: a.AnchorID, NodeID: a.NodeID, Extent: extent.Of(a.Extent)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var w anchorJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Anchor{AnchorID: w.AnchorID, NodeID: w.NodeID, Extent: w.Extent.Get()}
	return nil
}

// Matches reports whether a sits on nodeID with an extent equal to e.
func (a Anchor) Matches(nodeID string, e extent.Extent) bool {
	return a.NodeID == nodeID && extent.Equal(a.Extent, e)
}

// Validate checks ids and the extent.
func (a Anchor) Validate() error {
	if a.AnchorID == "" || a.NodeID == "" {
		return fmt.Errorf("%w: anchor id and node id are required", apperr.ErrInvalidArgument)
	}
	return extent.Validate(a.Extent)
}

// FindByExtent returns the anchor in list that sits on nodeID with extent e.
func FindByExtent(list []Anchor, nodeID string, e extent.Extent) (Anchor, bool) {
	for _, a := range list {
		if a.Matches(nodeID, e) {
			return a, true
		}
	}
	return Anchor{}, false
}

package linking

import (
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
)

// Action identifies what a menu item does.
type Action string

// Menu actions.
const (
	ActionStartLink    Action = "start_link"
	ActionCompleteLink Action = "complete_link"
	ActionCancelLink   Action = "cancel_link"
	ActionFollowLink   Action = "follow_link"
	ActionDeleteLink   Action = "delete_link"
)

// MenuItem is one entry of a context menu.
type MenuItem struct {
	Label  string `json:"label"`
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

// Menu is a context menu computed for one request. It is a value: callers own
// it and nothing else sees it.
type Menu struct {
	Items   []MenuItem `json:"items"`
	Version uint64     `json:"version"`
}

// NodeMenu is the context menu of nodeID given the linking state.
func NodeMenu(s Snapshot, nodeID string) Menu {
	m := Menu{Version: s.Version}
	switch s.State {
	case StateAwaiting:
		m.Items = []MenuItem{
			{Label: "Complete link to " + selectionLabel(s, nodeID), Action: ActionCompleteLink, Target: nodeID},
			{Label: "Cancel link", Action: ActionCancelLink},
		}
	default:
		m.Items = []MenuItem{
			{Label: "Start link from " + selectionLabel(s, nodeID), Action: ActionStartLink, Target: nodeID},
		}
	}
	return m
}

func selectionLabel(s Snapshot, nodeID string) string {
	if s.Selection != nil && s.Selection.NodeID == nodeID && !s.Selection.Unresolvable {
		return extent.Label(s.Selection.Extent.Get())
	}
	return extent.Label(extent.None{})
}

// LinkMenu is the context menu of a link.
func LinkMenu(l models.Link, version uint64) Menu {
	return Menu{
		Version: version,
		Items: []MenuItem{
			{Label: "Follow " + linkTitle(l), Action: ActionFollowLink, Target: l.LinkID},
			{Label: "Delete " + linkTitle(l), Action: ActionDeleteLink, Target: l.LinkID},
		},
	}
}

func linkTitle(l models.Link) string {
	if l.Title == "" {
		return "link"
	}
	return "link \"" + l.Title + "\""
}

// Package models defines the domain types for Anchorage.
package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/starford/anchorage/internal/apperr"
)

// NodeType is the kind of content a node holds.
type NodeType string

// Node types. Video, PDF and audio are reserved.
const (
	NodeText   NodeType = "text"
	NodeImage  NodeType = "image"
	NodeFolder NodeType = "folder"
	NodeVideo  NodeType = "video"
	NodePDF    NodeType = "pdf"
	NodeAudio  NodeType = "audio"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeText, NodeImage, NodeFolder, NodeVideo, NodePDF, NodeAudio:
		return true
	}
	return false
}

// FilePath locates a node in the tree. Path runs from the root to the node
// itself; Children holds the ids of immediate children.
type FilePath struct {
	Path     []string `json:"path"`
	Children []string `json:"children"`
}

// Owner returns the last element of Path.
func (p FilePath) Owner() string {
	if len(p.Path) == 0 {
		return ""
	}
	return p.Path[len(p.Path)-1]
}

// Parent returns the id of the parent node, or "" for roots.
func (p FilePath) Parent() string {
	if len(p.Path) < 2 {
		return ""
	}
	return p.Path[len(p.Path)-2]
}

// AddChild adds id to Children if absent.
func (p *FilePath) AddChild(id string) {
	if !slices.Contains(p.Children, id) {
		p.Children = append(p.Children, id)
	}
}

// RemoveChild removes id from Children.
func (p *FilePath) RemoveChild(id string) {
	p.Children = slices.DeleteFunc(p.Children, func(c string) bool { return c == id })
}

// Node is a unit of content. Anchorage references nodes, it does not own them.
type Node struct {
	NodeID      string    `json:"nodeId"`
	Type        NodeType  `json:"type"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	FilePath    FilePath  `json:"filePath"`
	DateCreated time.Time `json:"dateCreated"`
}

// Validate checks the node type and the FilePath invariant.
func (n Node) Validate() error {
	if n.NodeID == "" {
		return fmt.Errorf("%w: node id is required", apperr.ErrInvalidArgument)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: node type %q", apperr.ErrInvalidArgument, n.Type)
	}
	if n.FilePath.Owner() != n.NodeID {
		return fmt.Errorf("%w: file path of %s must end with its id", apperr.ErrInvalidArgument, n.NodeID)
	}
	return nil
}

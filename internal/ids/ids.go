// Package ids mints client-side object identifiers of the form "<kind>.<random>".
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Object kinds used as id prefixes.
const (
	KindNode   = "node"
	KindAnchor = "anchor"
	KindLink   = "link"
)

// New returns a fresh id for kind.
func New(kind string) string {
	return kind + "." + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// KindOf returns the prefix of id, or "" when id has none.
func KindOf(id string) string {
	kind, _, ok := strings.Cut(id, ".")
	if !ok {
		return ""
	}
	return kind
}

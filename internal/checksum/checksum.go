// Package checksum derives the version tag clients send back in If-Match when
// editing a node.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Node returns the hex SHA-256 of a node's editable fields.
func Node(title, content string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

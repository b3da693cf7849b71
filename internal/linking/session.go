package linking

import "sync/atomic"

// Session owns the monotonic version every committed mutation bumps. Read
// paths stamp the version they were computed at so a view can tell whether it
// is stale.
type Session struct {
	version atomic.Uint64
}

// NewSession returns a session at version 0.
func NewSession() *Session { return &Session{} }

// Version returns the current version.
func (s *Session) Version() uint64 { return s.version.Load() }

// Bump advances the version and returns the new value.
func (s *Session) Bump() uint64 { return s.version.Add(1) }

// Package messaging bridges browser pages to their per-connection resolver and
// music player over websockets.
package messaging

// SessionRegistry is the read side of the hub used by admin endpoints.
type SessionRegistry interface {
	Count() int
	Sessions() []SessionInfo
	Stats() HubStats
}

var _ SessionRegistry = (*Hub)(nil)

// Package recents maintains the capped, deduplicated list of recent
// conversation summaries shown in the product's sidebar, reconciling a local
// cache with the remote backend's view.
package recents

import (
	"time"

	"github.com/google/uuid"
)

// Record is one persisted conversation summary.
type Record struct {
	// ID is stable and unique within the store. Server-assigned when a
	// round-trip happened, otherwise client-generated via NewID.
	ID string `json:"id"`

	// Content is the folded transcript ("User: ...\n\nAI: ...").
	Content string `json:"content"`

	// UpdatedAt is the time of the last mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a client-generated record id for sessions that have no
// server-assigned id yet.
func NewID() string {
	return uuid.NewString()
}

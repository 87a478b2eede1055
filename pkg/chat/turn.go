// Package chat provides the wire types for the lifestring assistant backends
// and the client that talks to them.
package chat

import (
	"strings"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the active transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// historyLimit is the number of trailing turns sent as conversation context.
const historyLimit = 5

// HistoryWindow returns the trailing turns that fit the context window.
func HistoryWindow(turns []Turn) []Turn {
	if len(turns) <= historyLimit {
		return turns
	}
	return turns[len(turns)-historyLimit:]
}

// FoldTranscript renders a transcript into the persisted summary format:
// turns as "<Role>: <text>" joined by blank lines, oldest first.
func FoldTranscript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t.Role.displayName())
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

func (r Role) displayName() string {
	switch r {
	case RoleAssistant:
		return "AI"
	default:
		return "User"
	}
}

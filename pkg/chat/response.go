package chat

import "strings"

// Reply represents a chat completion response from either endpoint.
type Reply struct {
	Message string `json:"message"`          // The assistant's full answer
	Intent  string `json:"intent,omitempty"` // Optional classified intent (authenticated endpoint)
	Joins   []Join `json:"joins,omitempty"`  // Suggested clubs/connections (public endpoint)
}

// Join describes a club or connection suggestion attached to a reply.
type Join struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// unavailablePhrase marks replies where the endpoint answered 200 but its own
// upstream was down. The backend embeds this wording instead of a status code.
const unavailablePhrase = "trouble connecting"

// IsDegraded reports whether a transport-successful reply carries an embedded
// service failure. Such replies are treated exactly like transport errors by
// the fallback chain.
func (r *Reply) IsDegraded() bool {
	if r == nil {
		return true
	}
	if r.Intent == "error" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Message), unavailablePhrase)
}

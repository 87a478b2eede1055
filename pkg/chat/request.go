package chat

// Request represents a chat completion request understood by both the
// authenticated and the public assistant endpoints.
type Request struct {
	Message     string     `json:"message"`               // The user's message
	Context     Context    `json:"context"`               // Conversation context (empty on the public endpoint)
	ProfileData ProfileDTO `json:"profile_data"`          // Profile payload used for personalization
}

// Context carries the authenticated endpoint's conversation context.
// The public endpoint receives an empty Context.
type Context struct {
	UserProfile         *ProfileDTO    `json:"user_profile,omitempty"`
	DetailedProfile     map[string]any `json:"detailed_profile,omitempty"`
	ConversationHistory []Turn         `json:"conversation_history,omitempty"`
}

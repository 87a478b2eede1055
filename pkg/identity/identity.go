// Package identity tracks the authenticated user context and fans out
// change notifications so conversation state never leaks across users.
package identity

import "sync"

// Provider exposes the current authenticated user and change notifications.
type Provider interface {
	// CurrentUserID returns the signed-in user's id, or "" when anonymous.
	CurrentUserID() string

	// Subscribe registers fn to run on every identity change. The returned
	// function removes the subscription.
	Subscribe(fn func(userID string)) (unsubscribe func())
}

// Notifier is an in-process Provider driven by explicit Set calls, typically
// from the gateway's auth handling.
type Notifier struct {
	mu     sync.Mutex
	userID string
	subs   map[int]func(string)
	nextID int
}

// NewNotifier creates a Notifier with no signed-in user.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(string))}
}

// CurrentUserID returns the current user id.
func (n *Notifier) CurrentUserID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.userID
}

// Set records the current user id and notifies subscribers, but only when the
// id actually changed. Sign-out is Set("").
func (n *Notifier) Set(userID string) {
	n.mu.Lock()
	if n.userID == userID {
		n.mu.Unlock()
		return
	}
	n.userID = userID
	subs := make([]func(string), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the Notifier.
	for _, fn := range subs {
		fn(userID)
	}
}

// Subscribe registers an identity-change callback.
func (n *Notifier) Subscribe(fn func(userID string)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

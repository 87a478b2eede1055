// Package stream reveals a fully-known reply incrementally, producing the
// typing effect the product shows in its chat surfaces. The assistant
// backends return complete answers in one response, so the pacing is
// manufactured here rather than carried by the transport.
package stream

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Delays configures the pause before each revealed rune, by content class.
// A zero Delays reveals instantly, which is what tests want.
type Delays struct {
	Space       time.Duration // before a space
	Punctuation time.Duration // before '.', '!', '?', ','
	Newline     time.Duration // before '\n'
	Default     time.Duration // before everything else
	Jitter      time.Duration // upper bound of random extra pause
}

// DefaultDelays mirrors the pacing of the product's typing effect.
func DefaultDelays() Delays {
	return Delays{
		Space:       20 * time.Millisecond,
		Punctuation: 150 * time.Millisecond,
		Newline:     100 * time.Millisecond,
		Default:     30 * time.Millisecond,
		Jitter:      40 * time.Millisecond,
	}
}

// Presenter reveals text rune by rune with content-dependent pacing.
// A Presenter is safe for concurrent use; each Present call owns its
// own reveal state.
type Presenter struct {
	delays Delays

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Presenter with the given pacing.
func New(delays Delays) *Presenter {
	return &Presenter{
		delays: delays,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Present reveals fullText through onUpdate one rune at a time, pausing
// before each rune. Cancellation is cooperative: ctx is checked at every rune
// boundary, so cancellation latency is bounded by a single delay. On natural
// completion the final onUpdate call receives the complete fullText.
func (p *Presenter) Present(ctx context.Context, fullText string, onUpdate func(revealed string)) error {
	runes := []rune(fullText)
	for i, r := range runes {
		if err := p.pause(ctx, p.delayFor(r)); err != nil {
			return err
		}
		onUpdate(string(runes[:i+1]))
	}
	return nil
}

// pause waits for d or until ctx is done, whichever comes first.
func (p *Presenter) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Presenter) delayFor(r rune) time.Duration {
	var base time.Duration
	switch r {
	case ' ':
		base = p.delays.Space
	case '.', '!', '?', ',':
		base = p.delays.Punctuation
	case '\n':
		base = p.delays.Newline
	default:
		base = p.delays.Default
	}
	return base + p.jitter()
}

func (p *Presenter) jitter() time.Duration {
	if p.delays.Jitter <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.rng.Int63n(int64(p.delays.Jitter)))
}

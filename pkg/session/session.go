// Package session orchestrates one chat conversation end to end: user input,
// remote request with fallback, simulated streaming, and the recents update.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phoebemtg/lifestring-sub000/pkg/chat"
	"github.com/phoebemtg/lifestring-sub000/pkg/recents"
	"github.com/phoebemtg/lifestring-sub000/pkg/stream"
)

// State is the per-session lifecycle state. Submit is only accepted in
// StateIdle.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// ErrorReply is shown as the assistant's turn when both chat paths fail.
const ErrorReply = "Sorry, I encountered an error. Please try again."

// Session drives one conversation. All methods are safe for concurrent use;
// a Submit while another is in flight is a silent no-op, which serializes
// turns in submission order.
type Session struct {
	mu       sync.Mutex
	state    State
	turns    []chat.Turn
	recordID string
	cancel   context.CancelFunc
	profile  chat.ProfileDTO
	detailed map[string]any

	client    chat.Client
	store     *recents.Store
	presenter *stream.Presenter
	logger    *zap.Logger
}

// New creates an idle session.
func New(client chat.Client, store *recents.Store, presenter *stream.Presenter, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		profile:   chat.EmptyProfile(),
		client:    client,
		store:     store,
		presenter: presenter,
		logger:    logger,
	}
}

// SetProfile attaches the user's resolved profile to outgoing requests.
func (s *Session) SetProfile(profile chat.ProfileDTO) {
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
}

// SetDetailedProfile attaches the raw profile document, which the
// authenticated endpoint consumes alongside the resolved DTO.
func (s *Session) SetDetailedProfile(detailed map[string]any) {
	s.mu.Lock()
	s.detailed = detailed
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecordID returns the id of the recents record this session folds into, or
// "" before the first completed turn.
func (s *Session) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID
}

// Transcript returns a copy of the in-memory transcript.
func (s *Session) Transcript() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]chat.Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Submit runs one user turn and blocks until the reply finished revealing.
// Empty or whitespace-only input, and input arriving while a turn is in
// flight, are silently ignored. onUpdate receives the growing assistant text
// once per revealed rune; pass nil to skip the simulated reveal and commit
// the reply directly. The returned string is the assistant's full reply.
func (s *Session) Submit(ctx context.Context, userText string, onUpdate func(revealed string)) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", nil
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateAwaitingResponse
	s.turns = append(s.turns, chat.Turn{
		Role:      chat.RoleUser,
		Text:      userText,
		CreatedAt: time.Now().UTC(),
	})
	history := chat.HistoryWindow(s.turns)
	profile := s.profile
	detailed := s.detailed
	s.mu.Unlock()

	// The in-flight flag clears on every exit path.
	defer func() {
		cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.mu.Unlock()
	}()

	req := &chat.Request{
		Message: userText,
		Context: chat.Context{
			UserProfile:         &profile,
			DetailedProfile:     detailed,
			ConversationHistory: history,
		},
		ProfileData: profile,
	}

	reply, err := s.client.Ask(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.logger.Warn("chat request failed on both paths", zap.Error(err))
		s.appendAssistant(ErrorReply)
		return "", err
	}

	s.mu.Lock()
	s.state = StateStreaming
	s.turns = append(s.turns, chat.Turn{
		Role:      chat.RoleAssistant,
		CreatedAt: time.Now().UTC(),
	})
	turnIndex := len(s.turns) - 1
	s.mu.Unlock()

	if onUpdate == nil {
		s.setTurnText(turnIndex, reply.Message)
	} else {
		presentErr := s.presenter.Present(ctx, reply.Message, func(revealed string) {
			s.setTurnText(turnIndex, revealed)
			onUpdate(revealed)
		})
		if presentErr != nil {
			s.logger.Debug("reveal cancelled", zap.Error(presentErr))
		}
	}

	s.fold()
	return reply.Message, nil
}

// Reset abandons any active stream and starts a fresh conversation. Records
// already folded into the store are left untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.turns = nil
	s.recordID = ""
	s.state = StateIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// appendAssistant adds a complete assistant turn without a reveal.
func (s *Session) appendAssistant(text string) {
	s.mu.Lock()
	s.turns = append(s.turns, chat.Turn{
		Role:      chat.RoleAssistant,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	s.mu.Unlock()
}

// setTurnText updates one transcript turn in place. The index may be gone
// after a Reset, in which case the update is dropped.
func (s *Session) setTurnText(index int, text string) {
	s.mu.Lock()
	if index < len(s.turns) {
		s.turns[index].Text = text
	}
	s.mu.Unlock()
}

// fold commits the transcript to the recents store under this session's
// record id, generating an id on first use. A Reset that raced the end of
// streaming leaves an empty transcript; nothing is folded then. Persistence
// runs on a background context because the turn's context may already be
// cancelled.
func (s *Session) fold() {
	s.mu.Lock()
	if len(s.turns) == 0 {
		s.mu.Unlock()
		return
	}
	if s.recordID == "" {
		s.recordID = recents.NewID()
	}
	rec := recents.Record{
		ID:        s.recordID,
		Content:   chat.FoldTranscript(s.turns),
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()

	s.store.Upsert(context.Background(), rec)
}

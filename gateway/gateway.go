// Package gateway exposes the assistant core to the web frontend over HTTP:
// session lifecycle, chat with an SSE typewriter stream, and the recents list.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/phoebemtg/lifestring-sub000/pkg/chat"
	"github.com/phoebemtg/lifestring-sub000/pkg/identity"
	"github.com/phoebemtg/lifestring-sub000/pkg/recents"
	"github.com/phoebemtg/lifestring-sub000/pkg/session"
	"github.com/phoebemtg/lifestring-sub000/pkg/stream"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// Gateway is the HTTP front for the assistant core.
type Gateway struct {
	config     Config
	logger     *zap.Logger
	cache      recents.Cache
	store      *recents.Store
	identities *identity.Notifier
	client     chat.Client
	presenter  *stream.Presenter
	server     *fiber.App

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates a Gateway with its store, identity notifier and fallback client
// wired together.
func New(config Config, logger *zap.Logger) (*Gateway, error) {
	var cache recents.Cache
	var err error

	if config.DBPath != "" {
		cache, err = recents.NewSQLiteCache(config.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite cache: %w", err)
		}
		logger.Info("using SQLite recents cache", zap.String("path", config.DBPath))
	} else {
		cache = recents.NewMemoryCache()
		logger.Info("using in-memory recents cache")
	}

	store := recents.NewStore(cache, logger)
	identities := identity.NewNotifier()
	identities.Subscribe(func(userID string) {
		logger.Info("identity changed, clearing recents", zap.String("user_id", userID))
		store.ClearForIdentityChange()
	})

	client := chat.NewFallbackClient(
		chat.Endpoint{URL: config.AuthChatURL, Token: config.AuthToken},
		chat.Endpoint{URL: config.PublicChatURL},
		config.RequestTimeout(),
		logger,
	)

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	g := &Gateway{
		config:     config,
		logger:     logger,
		cache:      cache,
		store:      store,
		identities: identities,
		client:     client,
		presenter:  stream.New(stream.DefaultDelays()),
		server:     app,
		sessions:   make(map[string]*session.Session),
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post("/api/sessions", g.handleCreateSession)
	app.Post("/api/sessions/:id/chat", g.handleChat)
	app.Post("/api/sessions/:id/reset", g.handleResetSession)

	app.Get("/api/recents", g.handleListRecents)
	app.Post("/api/recents/sync", g.handleSyncRecents)
	app.Delete("/api/recents", g.handleClearRecents)

	return g, nil
}

// Run starts the gateway on the configured listening address.
func (g *Gateway) Run() error {
	g.logger.Info("starting assistant gateway",
		zap.String("listen", g.config.ListenAddr),
		zap.String("public_chat_url", g.config.PublicChatURL),
		zap.Bool("authenticated_path", g.config.AuthChatURL != "" && g.config.AuthToken != ""),
	)

	return g.server.Listen(g.config.ListenAddr)
}

// Close shuts down the gateway and releases the cache.
func (g *Gateway) Close() error {
	return g.cache.Close()
}

type createSessionRequest struct {
	UserID  string         `json:"user_id"`
	Profile map[string]any `json:"profile"`
}

type createSessionResponse struct {
	SessionID string           `json:"session_id"`
	Recents   []recents.Record `json:"recents"`
}

// handleCreateSession provisions a session for a signed-in or anonymous user
// and performs the load-on-mount merge of their cached recents.
func (g *Gateway) handleCreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
		}
	}

	g.identities.Set(req.UserID)
	loaded := g.store.Load(c.Context(), req.UserID, nil)

	sess := session.New(g.client, g.store, g.presenter, g.logger)
	sess.SetProfile(chat.ResolveProfile(req.Profile))
	sess.SetDetailedProfile(req.Profile)

	id := uuid.NewString()
	g.mu.Lock()
	g.sessions[id] = sess
	g.mu.Unlock()

	g.logger.Debug("session created",
		zap.String("session_id", id),
		zap.String("user_id", req.UserID),
		zap.Int("recents", len(loaded)),
	)

	return c.JSON(createSessionResponse{SessionID: id, Recents: loaded})
}

type chatRequest struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

type chatResponse struct {
	Message  string `json:"message"`
	RecordID string `json:"record_id"`
}

// handleChat runs one turn. With "stream": true the reveal is sent as SSE
// events; otherwise the complete reply is returned as JSON once ready.
func (g *Gateway) handleChat(c *fiber.Ctx) error {
	sess := g.session(c.Params("id"))
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	var req chatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if req.Stream {
		return g.streamChat(c, sess, req.Message)
	}

	reply, err := sess.Submit(c.Context(), req.Message, nil)
	if err != nil {
		// The session already surfaced the failure as an assistant turn.
		return c.JSON(chatResponse{Message: session.ErrorReply, RecordID: sess.RecordID()})
	}
	return c.JSON(chatResponse{Message: reply, RecordID: sess.RecordID()})
}

// streamChat sends the simulated reveal as Server-Sent Events: one "delta"
// event per revealed prefix, then a single "done" event with the record id.
func (g *Gateway) streamChat(c *fiber.Ctx, sess *session.Session, message string) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		_, err := sess.Submit(context.Background(), message, func(revealed string) {
			writeSSE(w, "delta", map[string]string{"message": revealed})
		})
		if err != nil {
			writeSSE(w, "delta", map[string]string{"message": session.ErrorReply})
		}
		writeSSE(w, "done", map[string]string{"record_id": sess.RecordID()})
	}))

	return nil
}

// writeSSE writes one named SSE event and flushes it.
func writeSSE(w *bufio.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	w.Flush()
}

// handleResetSession abandons the session's active stream and transcript.
func (g *Gateway) handleResetSession(c *fiber.Ctx) error {
	sess := g.session(c.Params("id"))
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	sess.Reset()
	return c.JSON(map[string]string{"status": "reset"})
}

// handleListRecents returns the store's current view.
func (g *Gateway) handleListRecents(c *fiber.Ctx) error {
	records := g.store.List()
	return c.JSON(map[string]any{
		"count":   len(records),
		"recents": records,
	})
}

type syncRecentsRequest struct {
	UserID  string           `json:"user_id"`
	Records []recents.Record `json:"records"`
}

// handleSyncRecents merges the remote backend's record list into the store
// and returns the reconciled view. Remote records win on id conflicts.
func (g *Gateway) handleSyncRecents(c *fiber.Ctx) error {
	var req syncRecentsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	g.identities.Set(req.UserID)
	merged := g.store.Load(c.Context(), req.UserID, req.Records)

	return c.JSON(map[string]any{
		"count":   len(merged),
		"recents": merged,
	})
}

// handleClearRecents wipes the current identity's history, memory and cache.
func (g *Gateway) handleClearRecents(c *fiber.Ctx) error {
	g.store.Purge(c.Context())
	return c.JSON(map[string]string{"status": "cleared"})
}

func (g *Gateway) session(id string) *session.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[id]
}

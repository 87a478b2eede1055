package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phoebemtg/lifestring-sub000/pkg/chat"
	"github.com/phoebemtg/lifestring-sub000/pkg/recents"
)

// testGateway creates a gateway with an in-memory cache, pointed at the given
// public chat endpoint.
func testGateway(t *testing.T, publicURL string) *Gateway {
	t.Helper()

	config := DefaultConfig()
	config.PublicChatURL = publicURL
	config.RequestTimeoutSeconds = 5

	logger, _ := zap.NewDevelopment()
	g, err := New(config, logger)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func postJSON(t *testing.T, g *Gateway, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.server.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestHealthEndpoint(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := g.server.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result map[string]string
	decodeBody(t, resp, &result)
	assert.Equal(t, "ok", result["status"])
}

func TestCreateSessionReturnsIDAndRecents(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	resp := postJSON(t, g, "/api/sessions", createSessionRequest{
		UserID:  "user-x",
		Profile: map[string]any{"name": "Ada"},
	})
	assert.Equal(t, 200, resp.StatusCode)

	var created createSessionResponse
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.SessionID)
	assert.Empty(t, created.Recents)
}

func TestChatTurnEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chat.Reply{Message: "Here are some hikers!"})
	}))
	defer upstream.Close()

	g := testGateway(t, upstream.URL)

	resp := postJSON(t, g, "/api/sessions", createSessionRequest{UserID: "user-x"})
	var created createSessionResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, g, "/api/sessions/"+created.SessionID+"/chat", chatRequest{
		Message: "find hiking friends",
	})
	assert.Equal(t, 200, resp.StatusCode)

	var turn chatResponse
	decodeBody(t, resp, &turn)
	assert.Equal(t, "Here are some hikers!", turn.Message)
	assert.NotEmpty(t, turn.RecordID)

	// The folded conversation is now visible in the recents list.
	req := httptest.NewRequest(http.MethodGet, "/api/recents", nil)
	listResp, err := g.server.Test(req)
	require.NoError(t, err)

	var listing struct {
		Count   int              `json:"count"`
		Recents []recents.Record `json:"recents"`
	}
	decodeBody(t, listResp, &listing)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, turn.RecordID, listing.Recents[0].ID)
	assert.Equal(t, "User: find hiking friends\n\nAI: Here are some hikers!", listing.Recents[0].Content)
}

func TestChatUnknownSession(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	resp := postJSON(t, g, "/api/sessions/nope/chat", chatRequest{Message: "hi"})
	assert.Equal(t, 404, resp.StatusCode)
}

func TestChatBothPathsDownReturnsApology(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	g := testGateway(t, upstream.URL)

	resp := postJSON(t, g, "/api/sessions", createSessionRequest{})
	var created createSessionResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, g, "/api/sessions/"+created.SessionID+"/chat", chatRequest{Message: "hi"})
	assert.Equal(t, 200, resp.StatusCode)

	var turn chatResponse
	decodeBody(t, resp, &turn)
	assert.Contains(t, turn.Message, "Sorry")
}

func TestSyncRecentsMergesRemoteView(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	resp := postJSON(t, g, "/api/recents/sync", syncRecentsRequest{
		UserID: "user-x",
		Records: []recents.Record{
			{ID: "a", Content: "User: hi\n\nAI: hello"},
		},
	})
	assert.Equal(t, 200, resp.StatusCode)

	var merged struct {
		Count   int              `json:"count"`
		Recents []recents.Record `json:"recents"`
	}
	decodeBody(t, resp, &merged)
	require.Equal(t, 1, merged.Count)
	assert.Equal(t, "a", merged.Recents[0].ID)
}

func TestIdentityChangeClearsRecents(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	postJSON(t, g, "/api/recents/sync", syncRecentsRequest{
		UserID:  "user-x",
		Records: []recents.Record{{ID: "a", Content: "x's chat"}},
	})
	require.Len(t, g.store.List(), 1)

	// A session created for another user clears the previous view.
	resp := postJSON(t, g, "/api/sessions", createSessionRequest{UserID: "user-y"})
	assert.Equal(t, 200, resp.StatusCode)

	var created createSessionResponse
	decodeBody(t, resp, &created)
	assert.Empty(t, created.Recents)
	assert.Empty(t, g.store.List())
}

func TestClearRecents(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	postJSON(t, g, "/api/recents/sync", syncRecentsRequest{
		UserID:  "user-x",
		Records: []recents.Record{{ID: "a", Content: "c"}},
	})
	require.Len(t, g.store.List(), 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/recents", nil)
	resp, err := g.server.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, g.store.List())
}

func TestResetSession(t *testing.T) {
	g := testGateway(t, "http://localhost:9")

	resp := postJSON(t, g, "/api/sessions", createSessionRequest{})
	var created createSessionResponse
	decodeBody(t, resp, &created)

	resp = postJSON(t, g, "/api/sessions/"+created.SessionID+"/reset", nil)
	assert.Equal(t, 200, resp.StatusCode)

	resp = postJSON(t, g, "/api/sessions/unknown/reset", nil)
	assert.Equal(t, 404, resp.StatusCode)
}

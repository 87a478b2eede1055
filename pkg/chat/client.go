package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single endpoint call so a dead backend cannot pin a
// session in flight indefinitely.
const DefaultTimeout = 30 * time.Second

// Endpoint describes one remote assistant backend.
type Endpoint struct {
	// URL of the chat completion route (e.g. "https://api.example.com/chat")
	URL string

	// Token is the bearer credential. Empty for the public endpoint.
	Token string
}

// Configured reports whether the endpoint can be called at all.
func (e Endpoint) Configured() bool {
	return e.URL != ""
}

// Client asks an assistant backend for a reply to one user message.
type Client interface {
	Ask(ctx context.Context, req *Request) (*Reply, error)
}

// FallbackClient tries the authenticated endpoint first and degrades to the
// public one. A 200 response whose body signals a failed upstream (see
// Reply.IsDegraded) counts as a failure of the authenticated path. Failure of
// the public path is terminal.
type FallbackClient struct {
	authenticated Endpoint
	public        Endpoint
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewFallbackClient creates a client over the two assistant endpoints.
func NewFallbackClient(authenticated, public Endpoint, timeout time.Duration, logger *zap.Logger) *FallbackClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackClient{
		authenticated: authenticated,
		public:        public,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Ask resolves one user message to a reply, falling back from the
// authenticated endpoint to the public one. The public call drops the
// conversation context but keeps the profile payload.
func (c *FallbackClient) Ask(ctx context.Context, req *Request) (*Reply, error) {
	if c.authenticated.Configured() && c.authenticated.Token != "" {
		reply, err := c.call(ctx, c.authenticated, req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("authenticated chat endpoint failed, falling back",
				zap.String("url", c.authenticated.URL),
				zap.Error(err),
			)
		case reply.IsDegraded():
			c.logger.Warn("authenticated chat endpoint degraded, falling back",
				zap.String("intent", reply.Intent),
			)
		default:
			return reply, nil
		}
	}

	if !c.public.Configured() {
		return nil, fmt.Errorf("no public chat endpoint configured")
	}

	publicReq := *req
	publicReq.Context = Context{}

	reply, err := c.call(ctx, c.public, &publicReq)
	if err != nil {
		return nil, fmt.Errorf("public chat endpoint: %w", err)
	}
	return reply, nil
}

// call performs one POST against an endpoint.
func (c *FallbackClient) call(ctx context.Context, endpoint Endpoint, req *Request) (*Reply, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if endpoint.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+endpoint.Token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %d: %s", httpResp.StatusCode, string(body))
	}

	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &reply, nil
}

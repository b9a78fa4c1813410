package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/errx"
)

// Client talks to the remote agent on behalf of one conversation. It keeps the
// remote session id so follow-up messages continue the same conversation, and
// sends at most one message at a time.
type Client struct {
	cfg        config.AgentConfig
	tokens     *TokenProvider
	httpClient *http.Client
	logger     *slog.Logger

	turnMu sync.Mutex // held for the whole of SendMessage

	mu         sync.Mutex
	sessionID  string
	generation uint64 // bumped by ResetSession
}

// NewClient creates a client. Without WithTokenProvider it gets a provider of its own.
func NewClient(cfg config.AgentConfig, opts ...Option) *Client {
	o := buildOptions(opts)
	tokens := o.tokens
	if tokens == nil {
		tokens = NewTokenProvider(cfg, opts...)
	}
	return &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: o.httpClient,
		logger:     o.logger,
		sessionID:  o.sessionID,
	}
}

// IsConfigured reports whether API key, agent id and host are all present.
// It performs no I/O.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != "" && c.cfg.AgentID != "" && c.cfg.HostURL != ""
}

// SessionID returns the remote session id, or "" before the first reply.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResetSession forgets the remote session id. The bearer token is kept. A reply
// still in flight will not bring the old session id back.
func (c *Client) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
	c.generation++
}

func (c *Client) session() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.generation
}

// current reports whether no reset happened since generation gen.
func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

// ClearToken drops the cached bearer token. The session id is kept.
func (c *Client) ClearToken() {
	c.tokens.Clear()
}

// SendMessage sends text as a user turn and returns the agent's reply. A session id
// in the response becomes sticky for later calls. A 2xx response without reply text
// yields FallbackReply rather than an error.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	reply, _, err := c.send(ctx, text)
	return reply, err
}

// send is SendMessage that also returns the session generation the turn ran in.
func (c *Client) send(ctx context.Context, text string) (string, uint64, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", 0, err
	}

	sessionID, gen := c.session()

	payload, err := json.Marshal(chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: text}},
		Stream:    false,
		SessionID: sessionID,
	})
	if err != nil {
		return "", gen, errx.ChatRequest(0, "", fmt.Errorf("encode chat request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL(), bytes.NewReader(payload))
	if err != nil {
		return "", gen, errx.ChatRequest(0, "", fmt.Errorf("build chat request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderAgentID, c.cfg.AgentID)
	req.Header.Set(HeaderOrchestrationID, c.cfg.OrchestrationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("chat request failed", "error", err)
		return "", gen, errx.ChatRequest(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
	if err != nil {
		return "", gen, errx.ChatRequest(resp.StatusCode, "", fmt.Errorf("read chat response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Clear()
		}
		c.logger.Warn("chat request rejected", "status", resp.StatusCode)
		return "", gen, errx.ChatRequest(resp.StatusCode, string(body), nil)
	}

	reply, newID, ok := parseChatResponse(body)
	if !ok {
		c.logger.Warn("chat response is not a JSON object", "bytes", len(body))
	}
	if newID != "" {
		c.mu.Lock()
		if c.generation == gen {
			c.sessionID = newID
		}
		c.mu.Unlock()
	}
	return reply, gen, nil
}

func (c *Client) chatURL() string {
	return strings.TrimRight(c.cfg.HostURL, "/") + chatPath
}

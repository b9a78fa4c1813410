package agent

import (
	"context"
	"time"
)

// Conversations is what the HTTP and WebSocket surfaces need from the agent layer.
// Each conversation is addressed by the anonymous user id and the browser tab id.
type Conversations interface {
	// Send delivers one user message and returns the agent's reply.
	Send(ctx context.Context, userID, tabID, text string) (string, error)

	// Reset starts a fresh remote conversation for the tab.
	Reset(ctx context.Context, userID, tabID string) error

	// IsConfigured reports whether agent calls can be attempted at all.
	IsConfigured() bool

	// Status describes the tab's conversation and the shared token cache.
	Status(userID, tabID string) Status
}

// Status is a point-in-time view of a conversation and the token cache.
type Status struct {
	Configured     bool      `json:"configured"`
	SessionActive  bool      `json:"session_active"`
	TokenCached    bool      `json:"token_cached"`
	TokenExpiresAt time.Time `json:"-"`
}

// Ensure Service implements Conversations.
var _ Conversations = (*Service)(nil)

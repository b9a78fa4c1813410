// Package agent implements the session- and token-caching client for the remote
// conversational agent, and the HTTP and WebSocket surfaces that expose it.
package agent

import (
	"time"
)

const (
	// GrantTypeAPIKey is the grant used to exchange an API key for a bearer token.
	GrantTypeAPIKey = "urn:ibm:params:oauth:grant-type:apikey"

	// DefaultTokenURL is the identity endpoint used when none is configured.
	DefaultTokenURL = "https://iam.cloud.ibm.com/identity/token"

	// TokenExpiryBuffer is how long before expiry a cached token stops being reused.
	TokenExpiryBuffer = 5 * time.Minute

	// FallbackReply is returned when a successful chat response carries no reply text.
	FallbackReply = "I received your message but couldn't process a response."

	// HeaderAgentID and HeaderOrchestrationID select the remote agent configuration.
	HeaderAgentID         = "X-Agent-ID"
	HeaderOrchestrationID = "X-Orchestration-ID"

	chatPath           = "/v1/chat"
	defaultExpiresIn   = 3600.0
	maxExpiresIn       = 365 * 24 * 3600.0 // keeps the time.Duration conversion in range
	maxResponseBodyLen = 4 << 20
)

// chatMessage is one entry of the chat payload.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body sent to the chat endpoint. SessionID is omitted until the
// remote agent has assigned one.
type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	SessionID string        `json:"session_id,omitempty"`
}

// tokenResponse is the identity endpoint's reply.
type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

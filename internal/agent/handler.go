package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/domain"
	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/ashureev/helpdesk/internal/render"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Handler serves the chat over plain HTTP.
type Handler struct {
	conversations Conversations
	rateLimiter   *RateLimiter
	ws            *WebSocketHandler
	maxBodySize   int64
}

// ChatRequest is the body of POST /api/agent/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body of a chat reply. On failure Message carries friendly
// assistant text and Error/Kind describe the cause.
type ChatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Error   string             `json:"error,omitempty"`
	Kind    errx.Kind          `json:"kind,omitempty"`
}

// StatusResponse is the body of GET /api/agent/status.
type StatusResponse struct {
	Configured     bool   `json:"configured"`
	SessionActive  bool   `json:"session_active"`
	TokenCached    bool   `json:"token_cached"`
	TokenExpiresIn string `json:"token_expires_in,omitempty"`
}

// NewHandler creates the agent handler and its WebSocket endpoint. cfg may be nil.
func NewHandler(conversations Conversations, conns *ConnManager, cfg *config.Config) *Handler {
	maxBodySize := int64(defaultMaxRequestBodySize)
	limit, window := 20, time.Minute
	allowedOrigin, isDev := "", true
	if cfg != nil {
		maxBodySize = cfg.MaxRequestBodySize
		limit = cfg.RateLimit.RequestsPerWindow
		window = cfg.RateLimit.WindowDuration
		allowedOrigin = cfg.FrontendURL
		isDev = cfg.IsDevelopment()
	}

	rl := NewRateLimiter(limit, window)
	return &Handler{
		conversations: conversations,
		rateLimiter:   rl,
		ws:            NewWebSocketHandler(conversations, conns, rl, maxBodySize, allowedOrigin, isDev),
		maxBodySize:   maxBodySize,
	}
}

// RegisterRoutes registers agent routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/agent", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Post("/reset", h.HandleReset)
		r.Get("/status", h.HandleStatus)
	})
	r.Get("/ws/agent/chat", h.ws.ServeHTTP)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
}

// HandleChat handles POST /api/agent/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if !h.rateLimiter.Allow(userID) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, `{"error": "request body too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	slog.Info("Agent chat request",
		"user_id", userID,
		"session_id", tabID,
		"message_length", len(req.Message),
		"request_id", chiMiddleware.GetReqID(r.Context()),
	)

	reply, err := h.conversations.Send(r.Context(), userID, tabID, req.Message)
	if err != nil {
		writeJSON(w, errx.HTTPStatus(err), ChatResponse{
			Message: assistantMessage(FriendlyReply(err, h.conversations.IsConfigured())),
			Error:   err.Error(),
			Kind:    errx.KindOf(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Message: assistantMessage(reply)})
}

// HandleReset handles POST /api/agent/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.conversations.Reset(r.Context(), userID, tabID); err != nil {
		slog.Error("Failed to reset conversation", "error", err, "user_id", userID, "session_id", tabID)
		http.Error(w, `{"error": "failed to reset conversation"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleStatus handles GET /api/agent/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())

	st := h.conversations.Status(userID, tabID)
	resp := StatusResponse{
		Configured:    st.Configured,
		SessionActive: st.SessionActive,
		TokenCached:   st.TokenCached,
	}
	if !st.TokenExpiresAt.IsZero() {
		resp.TokenExpiresIn = humanize.Time(st.TokenExpiresAt)
	}
	writeJSON(w, http.StatusOK, resp)
}

// assistantMessage wraps reply text for the transcript, with rendered HTML.
func assistantMessage(content string) domain.ChatMessage {
	msg := domain.NewChatMessage(domain.RoleAssistant, content)
	msg.HTML = render.Markdown(content)
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/helpdesk/internal/domain"
	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/coder/websocket"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler serves the chat over a WebSocket. Messages on one connection are
// handled in order, so a tab never has two turns in flight.
type WebSocketHandler struct {
	conversations Conversations
	conns         *ConnManager
	rateLimiter   *RateLimiter
	maxMessageLen int64
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a WebSocket chat handler.
func NewWebSocketHandler(conversations Conversations, conns *ConnManager, rateLimiter *RateLimiter, maxMessageLen int64, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		conversations: conversations,
		conns:         conns,
		rateLimiter:   rateLimiter,
		maxMessageLen: maxMessageLen,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsInbound is a message from the browser.
type wsInbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsOutbound is a message to the browser.
type wsOutbound struct {
	Type    string              `json:"type"`
	Message *domain.ChatMessage `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    errx.Kind           `json:"kind,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("Chat WebSocket request", "user_id", userID, "session_id", tabID, "remote_addr", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	if h.maxMessageLen > 0 {
		ws.SetReadLimit(h.maxMessageLen)
	}

	h.conns.Register(userID, tabID, ws)
	defer h.conns.Unregister(userID, tabID, ws)

	h.readLoop(r.Context(), ws, userID, tabID)
	slog.Info("Chat WebSocket ended", "user_id", userID, "session_id", tabID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID, tabID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.write(ctx, ws, wsOutbound{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "message":
			h.handleMessage(ctx, ws, userID, tabID, msg.Content)
		case "reset":
			if err := h.conversations.Reset(ctx, userID, tabID); err != nil {
				slog.Warn("Failed to reset conversation", "error", err, "user_id", userID)
			}
			h.write(ctx, ws, wsOutbound{Type: "reset"})
		case "ping":
			h.write(ctx, ws, wsOutbound{Type: "pong"})
		default:
			h.write(ctx, ws, wsOutbound{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, ws *websocket.Conn, userID, tabID, content string) {
	if h.rateLimiter != nil && !h.rateLimiter.Allow(userID) {
		h.write(ctx, ws, wsOutbound{Type: "error", Error: "rate limit exceeded"})
		return
	}

	reply, err := h.conversations.Send(ctx, userID, tabID, content)
	if err != nil {
		msg := assistantMessage(FriendlyReply(err, h.conversations.IsConfigured()))
		h.write(ctx, ws, wsOutbound{
			Type:    "error",
			Message: &msg,
			Error:   err.Error(),
			Kind:    errx.KindOf(err),
		})
		return
	}

	msg := assistantMessage(reply)
	h.write(ctx, ws, wsOutbound{Type: "message", Message: &msg})
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, v wsOutbound) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err, "type", v.Type)
	}
}

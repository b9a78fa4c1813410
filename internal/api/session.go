package api

import (
	"net/http"

	"github.com/ashureev/helpdesk/internal/domain"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/ashureev/helpdesk/internal/render"
	"github.com/go-chi/chi/v5"
)

// ConfigResponse tells a UI shell what the server can do.
type ConfigResponse struct {
	AgentConfigured bool               `json:"agent_configured"`
	TicketsEnabled  bool               `json:"tickets_enabled"`
	Welcome         domain.ChatMessage `json:"welcome"`
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Get("/api/config", h.GetConfig)
}

// GetMe returns the current anonymous user and tab.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"username":   user.Username,
		"session_id": identity.SessionIDFromContext(r.Context()),
		"created_at": user.CreatedAt,
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	welcome := domain.NewChatMessage(domain.RoleAssistant, h.welcome)
	welcome.HTML = render.Markdown(h.welcome)

	JSON(w, http.StatusOK, ConfigResponse{
		AgentConfigured: h.agent != nil && h.agent.IsConfigured(),
		TicketsEnabled:  h.ticketsEnabled,
		Welcome:         welcome,
	})
}

// Package api provides the HTTP handlers for session, configuration and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/helpdesk/internal/domain"
)

// UserReader is the persistence the session endpoints need.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// AgentStatus reports whether the remote agent can be called.
type AgentStatus interface {
	IsConfigured() bool
}

// Handler provides common handler utilities.
type Handler struct {
	repo           UserReader
	agent          AgentStatus
	ticketsEnabled bool
	welcome        string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo UserReader, agent AgentStatus, ticketsEnabled bool, welcome string) *Handler {
	return &Handler{
		repo:           repo,
		agent:          agent,
		ticketsEnabled: ticketsEnabled,
		welcome:        welcome,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

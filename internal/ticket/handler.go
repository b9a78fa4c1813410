package ticket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/helpdesk/internal/api"
	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/go-chi/chi/v5"
)

// Handler serves ticket submission and the option catalog.
type Handler struct {
	client      *Client
	catalog     Catalog
	maxBodySize int64
}

// SubmitRequest is the body of POST /api/tickets.
type SubmitRequest struct {
	Description string `json:"description"`
	Overrides
}

// SubmitResponse is the body returned by POST /api/tickets.
type SubmitResponse struct {
	Result
	Error string    `json:"error,omitempty"`
	Kind  errx.Kind `json:"kind,omitempty"`
}

// NewHandler creates a ticket handler.
func NewHandler(client *Client, catalog Catalog, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &Handler{client: client, catalog: catalog, maxBodySize: maxBodySize}
}

// RegisterRoutes registers ticket routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/options", h.HandleOptions)
	})
}

// HandleSubmit handles POST /api/tickets.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		api.Error(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.IncidentCategory != "" && !h.catalog.HasCategory(req.IncidentCategory) {
		api.Error(w, http.StatusBadRequest, "unknown incident category")
		return
	}
	if req.CallerUsername == "" && h.client.cfg.Caller == "" {
		req.CallerUsername = identity.UsernameFromContext(r.Context())
	}

	res, err := h.client.File(r.Context(), req.Description, req.Overrides)
	if err != nil {
		slog.Warn("Ticket submission failed", "user_id", userID, "error", err)
		api.JSON(w, errx.HTTPStatus(err), SubmitResponse{Result: res, Error: err.Error(), Kind: errx.KindOf(err)})
		return
	}
	api.JSON(w, http.StatusOK, SubmitResponse{Result: res})
}

// HandleOptions handles GET /api/tickets/options.
func (h *Handler) HandleOptions(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, h.catalog)
}

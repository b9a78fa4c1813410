package ticket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "anon_0123456789abcdef0123456789abcdef"

func newTestRouter(c *Client) chi.Router {
	h := NewHandler(c, DefaultCatalog(), 1<<20)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.NewContext(r.Context(), testUserID, "tab-1")))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleSubmit(t *testing.T) {
	var got Request
	srv := newTicketServer(t, http.StatusOK, `{"success":true,"incident_number":"INC42"}`, &got)
	r := newTestRouter(NewClient(config.TicketConfig{URL: srv.URL, Urgency: "3"}, srv.Client(), nil))

	w := post(r, `{"description":"Printer jammed","urgency_value":"2","incident_category":"Outage"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "INC42", resp.IncidentNumber)
	assert.Contains(t, resp.Text, "INC42")

	assert.Equal(t, "2", got.UrgencyValue)
	assert.Equal(t, "Outage", got.IncidentCategory)
	assert.Equal(t, "anon-89abcdef", got.CallerUsername)
}

func TestHandleSubmitValidation(t *testing.T) {
	r := newTestRouter(NewClient(config.TicketConfig{URL: "http://127.0.0.1:1"}, nil, nil))

	assert.Equal(t, http.StatusBadRequest, post(r, `{"description":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, `{"description":"x","incident_category":"Coffee"}`).Code)
}

func TestHandleSubmitNotConfigured(t *testing.T) {
	r := newTestRouter(NewClient(config.TicketConfig{}, nil, nil))

	w := post(r, `{"description":"help"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, NotConfiguredText, resp.Text)
	assert.False(t, resp.Success)
}

func TestHandleOptions(t *testing.T) {
	r := newTestRouter(NewClient(config.TicketConfig{}, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/options", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var c Catalog
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Len(t, c.Categories, 8)
	assert.Len(t, c.Urgencies, 4)
}

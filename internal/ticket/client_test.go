package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketServer(t *testing.T, status int, reply string, got *Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_support" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileSuccess(t *testing.T) {
	var got Request
	srv := newTicketServer(t, http.StatusOK, `{"success":true,"incident_number":"INC0010001","slack_message_sent":true}`, &got)
	c := NewClient(config.TicketConfig{URL: srv.URL + "/", Urgency: "2", AssignmentGroup: "Network"}, srv.Client(), nil)

	res, err := c.File(context.Background(), "Wi-Fi down on floor 3", Overrides{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "INC0010001", res.IncidentNumber)
	assert.Contains(t, res.Text, "INC0010001")

	assert.Equal(t, "Wi-Fi down on floor 3", got.ShortDescription)
	assert.Equal(t, "2", got.UrgencyValue)
	assert.Equal(t, "Network", got.AssignmentGroup)
}

func TestFileRemoteFailureReply(t *testing.T) {
	srv := newTicketServer(t, http.StatusOK, `{"success":false,"error_details":{"error_message":"assignment group not found"}}`, nil)
	c := NewClient(config.TicketConfig{URL: srv.URL}, srv.Client(), nil)

	res, err := c.File(context.Background(), "help", Overrides{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Text, "assignment group not found")
}

func TestFileHTTPError(t *testing.T) {
	srv := newTicketServer(t, http.StatusUnprocessableEntity, `{"detail":"urgency_value required"}`, nil)
	c := NewClient(config.TicketConfig{URL: srv.URL}, srv.Client(), nil)

	res, err := c.File(context.Background(), "help", Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrTicketRequest))
	assert.Equal(t, GenericFailureText, res.Text)

	var xerr *errx.Error
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, http.StatusUnprocessableEntity, xerr.Status)
}

func TestFileTransportError(t *testing.T) {
	srv := newTicketServer(t, http.StatusOK, `{}`, nil)
	url := srv.URL
	srv.Close()

	c := NewClient(config.TicketConfig{URL: url}, nil, nil)
	res, err := c.File(context.Background(), "help", Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrTicketRequest))
	assert.Equal(t, GenericFailureText, res.Text)
}

func TestFileNotConfigured(t *testing.T) {
	c := NewClient(config.TicketConfig{}, nil, nil)
	assert.False(t, c.Enabled())

	res, err := c.File(context.Background(), "help", Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrConfiguration))
	assert.Equal(t, NotConfiguredText, res.Text)
}

package errx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("send: %w", ChatRequest(http.StatusTeapot, "short and stout", nil))

	assert.ErrorIs(t, err, ErrChatRequest)
	assert.NotErrorIs(t, err, ErrTokenFetch)
	assert.Equal(t, KindChatRequest, KindOf(err))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusTeapot, e.Status)
	assert.Equal(t, "short and stout", e.Body)
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "failed to get bearer token: 401", TokenFetch(401, "", nil).Error())
	assert.Equal(t, "chat API error: unexpected EOF", ChatRequest(0, "", io.ErrUnexpectedEOF).Error())
	assert.Equal(t, "API key not configured", Configuration("API key not configured").Error())
	assert.ErrorIs(t, ChatRequest(0, "", io.ErrUnexpectedEOF), io.ErrUnexpectedEOF)
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", Configuration("missing"), http.StatusServiceUnavailable},
		{"token", TokenFetch(500, "", nil), http.StatusBadGateway},
		{"chat", ChatRequest(404, "", nil), http.StatusBadGateway},
		{"ticket", TicketRequest(0, "", errors.New("dial")), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

package agent

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/helpdesk/internal/errx"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialChat(t *testing.T, conv Conversations) (*websocket.Conn, *ConnManager, func()) {
	t.Helper()
	conns := NewConnManager()
	h := NewHandler(conv, conns, nil)

	r := chi.NewRouter()
	r.Use(withIdentity(testUserID, "tab-1"))
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/agent/chat"
	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	return ws, conns, func() {
		_ = ws.Close(websocket.StatusNormalClosure, "")
		srv.Close()
		h.Close()
	}
}

func exchange(t *testing.T, ws *websocket.Conn, in map[string]string) wsOutbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.NoError(t, ws.Write(ctx, websocket.MessageText, data))

	_, raw, err := ws.Read(ctx)
	require.NoError(t, err)
	var out wsOutbound
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestWebSocketChat(t *testing.T) {
	conv := &fakeConversations{reply: "Hello from the agent", configured: true}
	ws, conns, closeAll := dialChat(t, conv)
	defer closeAll()

	out := exchange(t, ws, map[string]string{"type": "message", "content": "hi"})
	assert.Equal(t, "message", out.Type)
	require.NotNil(t, out.Message)
	assert.Equal(t, "Hello from the agent", out.Message.Content)
	assert.Equal(t, 1, conns.Count())

	out = exchange(t, ws, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", out.Type)

	out = exchange(t, ws, map[string]string{"type": "reset"})
	assert.Equal(t, "reset", out.Type)
	conv.mu.Lock()
	assert.Equal(t, 1, conv.resets)
	conv.mu.Unlock()

	out = exchange(t, ws, map[string]string{"type": "shrug"})
	assert.Equal(t, "error", out.Type)
}

func TestWebSocketChatError(t *testing.T) {
	conv := &fakeConversations{err: errx.TokenFetch(401, "", nil), configured: true}
	ws, _, closeAll := dialChat(t, conv)
	defer closeAll()

	out := exchange(t, ws, map[string]string{"type": "message", "content": "hi"})
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, errx.KindTokenFetch, out.Kind)
	require.NotNil(t, out.Message)
	assert.Contains(t, out.Message.Content, "trouble connecting")
}

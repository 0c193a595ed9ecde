package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(env.h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	return string(data)
}

func TestHandleWS_RetainedStatusThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.hub.Publish("30.")
	conn := dialWS(t, env)

	assert.Equal(t, "30.", readText(t, conn))

	// The write pump starts after the hub subscription, so the client is
	// subscribed once the retained status has arrived.
	env.hub.Publish("31")
	assert.Equal(t, "31", readText(t, conn))
}

func TestHandleWS_TextMessagesAreCommands(t *testing.T) {
	env := newTestEnv(t)
	env.hub.Publish("0")
	conn := dialWS(t, env)
	readText(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("mva20")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("  ")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("set\n")))

	require.Eventually(t, func() bool {
		return len(env.sink.received()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"mva20", "set"}, env.sink.received())
}

func TestHandleWS_BusyWhenQueueFull(t *testing.T) {
	env := newTestEnv(t)
	env.sink.full = true
	env.hub.Publish("0")
	conn := dialWS(t, env)
	readText(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("mvr5")))

	assert.Equal(t, "busy", readText(t, conn))
}

func TestHandleWS_NotConfigured(t *testing.T) {
	h := NewHandlers(Deps{}, nil)
	w := httptest.NewRecorder()

	h.HandleWS(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

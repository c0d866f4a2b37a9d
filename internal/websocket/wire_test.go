package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWireServer starts an HTTP server around the handler and returns a dial
// function for real client connections.
func newWireServer(t *testing.T, h *Handler) func() *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
}

func writeWireFrame(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func readWireFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &got))
	return got
}

func authWireConn(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	writeWireFrame(t, conn, `{"type":"auth","token":"`+token+`"}`)
	frame := readWireFrame(t, conn)
	require.Equal(t, "auth_success", frame["type"])
}

func TestSupersededConnectionIsClosed(t *testing.T) {
	h, reg := newTestHandler(&stubDeliverer{})
	dial := newWireServer(t, h)

	first := dial()
	authWireConn(t, first, "token-alice")

	second := dial()
	authWireConn(t, second, "token-alice")

	// The supersede tears down the first connection's transport, so its next
	// read fails rather than hanging.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)

	// The replacement keeps the registry binding and stays usable.
	_, ok := reg.Lookup(1)
	assert.True(t, ok)
	writeWireFrame(t, second, `{"type":"ping"}`)
	assert.Equal(t, "pong", readWireFrame(t, second)["type"])
}

func TestMalformedPayloadKeepsConnectionOpen(t *testing.T) {
	h, _ := newTestHandler(&stubDeliverer{})
	dial := newWireServer(t, h)

	conn := dial()
	writeWireFrame(t, conn, `{not json`)

	frame := readWireFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "Invalid message format", frame["message"])

	// The same connection still serves the protocol afterwards.
	writeWireFrame(t, conn, `{"type":"ping"}`)
	assert.Equal(t, "pong", readWireFrame(t, conn)["type"])
}

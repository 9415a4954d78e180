package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialTestServer(t *testing.T, e *Engine) *websocket.Conn {
	t.Helper()

	ws := NewWebsocketServer(e, "", zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(ws.handleConn))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketRoundTrip(t *testing.T) {
	e := testEngine(t)
	conn := dialTestServer(t, e)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(message, &resp))
	require.Nil(t, resp.Error)
	assert.Equal(t, float64(1), resp.ID)
}

func TestWebsocketNotificationGetsNoReply(t *testing.T) {
	e := testEngine(t)
	conn := dialTestServer(t, e)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)

	err = conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NoError(t, err)

	// The only reply is for the second message.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(message, &resp))
	assert.Equal(t, float64(2), resp.ID)
}

func TestWebsocketStartStop(t *testing.T) {
	e := testEngine(t)
	ws := NewWebsocketServer(e, "localhost:0", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

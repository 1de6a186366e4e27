package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/bus"
)

func startHub(t *testing.T, origins []string) (*Hub, string) {
	t.Helper()
	h := New(origins, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleConnect))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBroadcastReachesClient(t *testing.T) {
	h, url := startHub(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	h.Handle(bus.Event{ID: "e1", Type: bus.TypeMonitorStarted})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got bus.Event
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, bus.TypeMonitorStarted, got.Type)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	h, url := startHub(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestOriginCheck(t *testing.T) {
	_, url := startHub(t, []string{"https://dash.example.com"})

	hdr := http.Header{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, origin := range []string{"https://dash.example.com", "http://localhost:5173"} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
		require.NoError(t, err, origin)
		conn.Close()
	}
}

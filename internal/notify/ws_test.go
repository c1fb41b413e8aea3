package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	b, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, websocket.Message.Send(conn, string(b)))
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var raw string
	require.NoError(t, websocket.Message.Receive(conn, &raw))
	var f testFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func TestWS_JoinReceivesEventUpdates(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)

	hello := readFrame(t, conn)
	assert.Equal(t, FrameConnected, hello.Type)
	assert.NotEmpty(t, hello.SessionID)

	writeFrame(t, conn, map[string]any{"type": "join-event", "eventId": "12"})
	joined := readFrame(t, conn)
	assert.Equal(t, FrameJoined, joined.Type)
	assert.Equal(t, int64(12), joined.EventID)
	assert.Equal(t, 1, h.RoomSize(12))

	h.Publish(sampleNotification(12))
	assert.Equal(t, FrameEventUpdate, readFrame(t, conn).Type)
	assert.Equal(t, FrameListUpdate, readFrame(t, conn).Type)

	writeFrame(t, conn, map[string]any{"type": "leave-event", "eventId": 12})
	assert.Equal(t, FrameLeft, readFrame(t, conn).Type)
	assert.Equal(t, 0, h.RoomSize(12))

	h.Publish(sampleNotification(12))
	assert.Equal(t, FrameListUpdate, readFrame(t, conn).Type)
}

func TestWS_RejectsBadFrames(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readFrame(t, conn)

	require.NoError(t, websocket.Message.Send(conn, "not json"))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "invalid frame payload", f.Message)

	writeFrame(t, conn, map[string]any{"type": "join-event"})
	assert.Equal(t, "eventId is required", readFrame(t, conn).Message)

	writeFrame(t, conn, map[string]any{"type": "chat"})
	assert.Equal(t, "unsupported frame type", readFrame(t, conn).Message)
}

func TestWS_DisconnectLeavesRooms(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readFrame(t, conn)

	writeFrame(t, conn, map[string]any{"type": "join-event", "eventId": 5})
	readFrame(t, conn)
	require.Equal(t, 1, h.RoomSize(5))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.RoomSize(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}

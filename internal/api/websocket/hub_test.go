package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedStatus struct{ state string }

func (f fixedStatus) StatusSnapshot() any {
	return map[string]string{"state": f.state}
}

type received struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	hub.SetStatusProvider(fixedStatus{state: "RUNNING"})
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubGreetsAndBroadcasts(t *testing.T) {
	hub, conn := startHub(t)

	greeting := readMessage(t, conn)
	require.Equal(t, MessageTypeSystemStatus, greeting.Type)
	require.JSONEq(t, `{"state":"RUNNING"}`, string(greeting.Data))
	require.Equal(t, 1, hub.GetClientCount())

	hub.Broadcast(NewDeviceSavedMessage("dev-1", "Pump", "EPS32"))

	saved := readMessage(t, conn)
	require.Equal(t, MessageTypeDeviceSaved, saved.Type)
	require.JSONEq(t, `{"device_id":"dev-1","name":"Pump","device_type":"EPS32"}`, string(saved.Data))
}

func TestHubAnswersStatusRequests(t *testing.T) {
	_, conn := startHub(t)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "status"}))

	status := readMessage(t, conn)
	require.Equal(t, MessageTypeSystemStatus, status.Type)
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	hub, conn := startHub(t)
	readMessage(t, conn)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub, conn := startHub(t)
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	require.Zero(t, hub.GetClientCount())
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop())
	for i := 0; i < 300; i++ {
		hub.Broadcast(NewDeviceDeletedMessage("dev"))
	}
	require.Len(t, hub.broadcast, cap(hub.broadcast))
}

func TestMessageConstructors(t *testing.T) {
	msg := NewSessionSubmittedMessage("s-1", "d-1")
	require.Equal(t, MessageTypeSessionSubmitted, msg.Type)
	require.Equal(t, SessionEventData{SessionID: "s-1", DeviceID: "d-1"}, msg.Data)
	require.False(t, msg.Timestamp.IsZero())

	msg = NewDeviceDeletedMessage("d-2")
	require.Equal(t, MessageTypeDeviceDeleted, msg.Type)
	require.Equal(t, DeviceEventData{DeviceID: "d-2"}, msg.Data)
}

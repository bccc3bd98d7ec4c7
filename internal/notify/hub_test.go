package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// dialHub spins up a test server that registers every incoming connection
// with the hub, and dials one client into it.
func dialHub(t *testing.T, hub *notify.Hub, userID int64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(ws, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func readEvent(t *testing.T, client *websocket.Conn) (string, map[string]any) {
	t.Helper()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg.Event, msg.Payload
}

func waitForConnections(t *testing.T, hub *notify.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections() != want {
		require.True(t, time.Now().Before(deadline), "hub never reached %d connections", want)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastPayload(t *testing.T) {
	hub := notify.NewHub(nil)
	defer hub.Close()

	client := dialHub(t, hub, 7)
	waitForConnections(t, hub, 1)

	hub.Broadcast(notify.Event{
		Name:        notify.EventRoundCreated,
		RoundID:     "round-1",
		ActorUserID: 7,
		Fields:      map[string]any{"status": "draft"},
	})

	event, payload := readEvent(t, client)
	require.Equal(t, notify.EventRoundCreated, event)
	require.Equal(t, "round-1", payload["roundId"])
	require.Equal(t, float64(7), payload["actorUserId"])
	require.Equal(t, "draft", payload["status"])
	require.NotEmpty(t, payload["at"])
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub := notify.NewHub(nil)
	defer hub.Close()

	first := dialHub(t, hub, 1)
	second := dialHub(t, hub, 2)
	waitForConnections(t, hub, 2)

	hub.Broadcast(notify.Event{Name: notify.EventRoundClosed, RoundID: "round-1"})

	for _, client := range []*websocket.Conn{first, second} {
		event, _ := readEvent(t, client)
		require.Equal(t, notify.EventRoundClosed, event)
	}
}

func TestHub_BroadcastToFilter(t *testing.T) {
	hub := notify.NewHub(nil)
	defer hub.Close()

	target := dialHub(t, hub, 1)
	bystander := dialHub(t, hub, 2)
	waitForConnections(t, hub, 2)

	hub.BroadcastTo(
		notify.Event{Name: notify.EventRoundRevealProgress, RoundID: "round-1"},
		func(memberID int64) bool { return memberID == 1 },
	)
	hub.Broadcast(notify.Event{Name: notify.EventRoundClosed, RoundID: "round-1"})

	event, _ := readEvent(t, target)
	require.Equal(t, notify.EventRoundRevealProgress, event)
	event, _ = readEvent(t, target)
	require.Equal(t, notify.EventRoundClosed, event)

	// The bystander only ever sees the unfiltered event.
	event, _ = readEvent(t, bystander)
	require.Equal(t, notify.EventRoundClosed, event)
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	hub := notify.NewHub(nil)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		id := hub.Register(ws, 7)
		hub.Unregister(id)
		hub.Unregister(id)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	waitForConnections(t, hub, 0)
	hub.Unregister(9999)
}

func TestHub_ConnectionIDsIncrease(t *testing.T) {
	hub := notify.NewHub(nil)
	defer hub.Close()

	ids := make(chan int64, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ids <- hub.Register(ws, 7)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	for range 2 {
		client, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer client.Close()
	}

	first := <-ids
	second := <-ids
	require.Greater(t, second, first)
}

func TestHub_CloseDrains(t *testing.T) {
	hub := notify.NewHub(nil)

	dialHub(t, hub, 1)
	dialHub(t, hub, 2)
	waitForConnections(t, hub, 2)

	hub.Close()
	require.Zero(t, hub.Connections())
}

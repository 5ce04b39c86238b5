package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	hub := NewHub(nil)
	a, cancelA := hub.Subscribe("s1")
	defer cancelA()
	b, cancelB := hub.Subscribe("s2")
	defer cancelB()

	hub.Publish(Event{Type: EventAction, SessionID: "s1", Action: "click"})

	ev := receive(t, a)
	assert.Equal(t, "click", ev.Action)
	assert.NotZero(t, ev.Timestamp)
	assert.Empty(t, b)
}

func TestHubPublishDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe("s1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range subscriberBuffer + 10 {
			hub.Publish(Event{Type: EventTurn, SessionID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe("s1")

	hub.Close("s1")

	ev := receive(t, ch)
	assert.Equal(t, EventDeleted, ev.Type)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("s1"))

	assert.NotPanics(t, cancel)
}

func TestHubCancelUnsubscribes(t *testing.T) {
	hub := NewHub(nil)
	_, cancel := hub.Subscribe("s1")
	require.Equal(t, 1, hub.Subscribers("s1"))

	cancel()
	cancel()

	assert.Zero(t, hub.Subscribers("s1"))
}

func newEventServer(t *testing.T, hub *Hub, check SessionChecker) *httptest.Server {
	t.Helper()
	router := gin.New()
	router.GET("/sessions/:id/events", NewHandler(hub, check, nil, nil).Events)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + sessionID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitSubscribed(t *testing.T, hub *Hub, sessionID string) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(sessionID) == 1 }, time.Second, 5*time.Millisecond)
}

func TestEventsStreamsSessionEvents(t *testing.T) {
	hub := NewHub(nil)
	server := newEventServer(t, hub, func(string) error { return nil })
	conn := dial(t, server, "s1")

	assert.Equal(t, "system", readType(t, conn)["type"])
	waitSubscribed(t, hub, "s1")

	hub.Publish(Event{
		Type:       EventTurn,
		SessionID:  "s1",
		Items:      []transcript.Item{transcript.AssistantMessage("done")},
		Screenshot: "abc",
	})

	msg := readType(t, conn)
	assert.Equal(t, "turn", msg["type"])
	assert.Equal(t, "abc", msg["screenshot"])
	assert.Len(t, msg["items"], 1)
}

func TestEventsAnswersPing(t *testing.T) {
	hub := NewHub(nil)
	server := newEventServer(t, hub, func(string) error { return nil })
	conn := dial(t, server, "s1")
	readType(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	assert.Equal(t, "pong", readType(t, conn)["type"])
}

func TestEventsClosesOnDelete(t *testing.T) {
	hub := NewHub(nil)
	server := newEventServer(t, hub, func(string) error { return nil })
	conn := dial(t, server, "s1")
	readType(t, conn)
	waitSubscribed(t, hub, "s1")

	hub.Close("s1")

	assert.Equal(t, "deleted", readType(t, conn)["type"])
	var msg map[string]any
	err := conn.ReadJSON(&msg)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestEventsDeleteDuringCheckClosesStream(t *testing.T) {
	hub := NewHub(nil)
	// The session is deleted after the handler subscribed but before its
	// check returned.
	server := newEventServer(t, hub, func(id string) error {
		hub.Close(id)
		return nil
	})
	conn := dial(t, server, "s1")

	assert.Equal(t, "system", readType(t, conn)["type"])
	assert.Equal(t, "deleted", readType(t, conn)["type"])
	var msg map[string]any
	err := conn.ReadJSON(&msg)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Zero(t, hub.Subscribers("s1"))
}

func TestEventsUnknownSession(t *testing.T) {
	hub := NewHub(nil)
	server := newEventServer(t, hub, func(id string) error { return failure.NotFound("events", id) })

	resp, err := http.Get(server.URL + "/sessions/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, hub.Subscribers("missing"))
}

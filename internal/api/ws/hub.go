package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
)

// Event types.
const (
	EventTurn    = "turn"
	EventAction  = "action"
	EventDeleted = "deleted"
)

// Event is pushed to subscribers of a session.
type Event struct {
	Type       string            `json:"type"`
	SessionID  string            `json:"session_id"`
	Action     string            `json:"action,omitempty"`
	Items      []transcript.Item `json:"items,omitempty"`
	Screenshot string            `json:"screenshot,omitempty"`
	CurrentURL string            `json:"current_url,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

const subscriberBuffer = 16

// Hub fans session events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	logger *zap.Logger
	now    func() time.Time
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[chan Event]struct{}),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers for sessionID's events. The channel is closed by
// cancel or when the session is closed on the hub.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() { h.unsubscribe(sessionID, ch) }
}

func (h *Hub) unsubscribe(sessionID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}

// Publish delivers ev to the session's subscribers.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = h.now().Unix()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				zap.String("session_id", ev.SessionID),
				zap.String("type", ev.Type),
			)
		}
	}
}

// Close publishes a deleted event and closes every subscription for
// sessionID.
func (h *Hub) Close(sessionID string) {
	h.Publish(Event{Type: EventDeleted, SessionID: sessionID})

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		close(ch)
	}
	delete(h.subs, sessionID)
}

// Subscribers returns how many subscriptions sessionID has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionChecker reports whether a session exists.
type SessionChecker func(sessionID string) error

// Handler serves the per-session event stream.
type Handler struct {
	hub     *Hub
	check   SessionChecker
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a handler. metrics may be nil.
func NewHandler(hub *Hub, check SessionChecker, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, check: check, logger: logger, metrics: metrics}
}

type clientMessage struct {
	Type string `json:"type"`
}

// Events upgrades the request and streams the session's events until the
// client disconnects or the session is deleted. The subscription is taken
// before the session check, so a delete racing the request always closes
// the stream.
func (h *Handler) Events(c *gin.Context) {
	sessionID := c.Param("id")
	events, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	if err := h.check(sessionID); err != nil {
		cancel()
		c.JSON(failure.Status(err), gin.H{"error": failure.Message(err)})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	log := h.logger.With(zap.String("session_id", sessionID))

	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go h.read(conn, pings, done, log)

	if err := h.write(conn, gin.H{"type": "system", "session_id": sessionID, "message": "subscribed"}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session deleted"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, ev); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
			h.metrics.RecordWSMessage("out", ev.Type)
		case <-pings:
			if err := h.write(conn, gin.H{"type": "pong", "timestamp": time.Now().Unix()}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// read consumes client frames so control messages are processed. A JSON
// {"type":"ping"} is answered with a pong message.
func (h *Handler) read(conn *websocket.Conn, pings chan<- struct{}, done chan<- struct{}, log *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		if msg.Type == "ping" {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

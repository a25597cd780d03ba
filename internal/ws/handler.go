package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"topics-service/internal/engine"
	"topics-service/internal/models"
	"topics-service/internal/observability"
	"topics-service/internal/rabbitmq"
)

// Handler attaches websocket connections to the engine and pumps commands
// and events between the socket and the connection's bounded event queue.
type Handler struct {
	engine    *engine.Engine
	publisher rabbitmq.Publisher
}

// NewHandler constructs a Handler.
func NewHandler(eng *engine.Engine, publisher rabbitmq.Publisher) *Handler {
	return &Handler{engine: eng, publisher: publisher}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// command is the inbound room command protocol.
type command struct {
	Action    string  `json:"action"`
	TopicID   string  `json:"topic_id,omitempty"`
	Content   string  `json:"content,omitempty"`
	MessageID string  `json:"message_id,omitempty"`
	Emoji     string  `json:"emoji,omitempty"`
	ReplyTo   *string `json:"reply_to,omitempty"`
}

// Handle authenticates the attach, upgrades the transport and runs the
// connection's read loop. A failed verification refuses the attach before the
// upgrade; every disconnect runs the leave cascade exactly once.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("topics-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token != "" {
		// Strip the bearer prefix; the query form carries the raw token.
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	} else {
		token = c.Query("token")
	}

	conn, err := h.engine.Attach(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.engine.Detach(ctx, conn)
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	traceID := span.SpanContext().TraceID().String()
	ip := observability.IPFromRequest(c.Request)
	connectedAt := time.Now()

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, conn, "ws_connect", ip, 0, "", requestID, traceID)

	go writePump(wsConn, conn)

	go func() {
		var closeReason string
		defer func() {
			h.engine.Detach(context.Background(), conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			h.publishLifecycle(context.Background(), conn, "ws_disconnect", ip,
				time.Since(connectedAt).Milliseconds(), closeReason, requestID, traceID)
			wsConn.Close()
		}()
		for {
			_, data, err := wsConn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
			h.dispatch(ctx, conn, data)
		}
	}()
}

// dispatch runs one command. Commands from the same connection run one at a
// time in submission order; per-command errors go back to this connection
// only and never terminate it.
func (h *Handler) dispatch(ctx context.Context, conn *engine.Conn, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.engine.Notify(conn, models.TopicEvent{
			Type: models.EventError, Code: "bad_command", Error: "malformed command",
		})
		return
	}

	switch cmd.Action {
	case "join":
		if err := h.engine.Join(ctx, conn, cmd.TopicID); err != nil {
			h.notifyError(conn, models.EventError, cmd.TopicID, err)
		}
	case "leave":
		if err := h.engine.Leave(ctx, conn, cmd.TopicID); err != nil {
			h.notifyError(conn, models.EventError, cmd.TopicID, err)
		}
	case "send":
		if _, err := h.engine.Send(ctx, conn, cmd.Content, cmd.ReplyTo); err != nil {
			h.notifyError(conn, models.EventMessageError, cmd.TopicID, err)
		}
	case "edit":
		if _, err := h.engine.Edit(ctx, conn, cmd.MessageID, cmd.Content); err != nil {
			h.notifyError(conn, models.EventMessageError, cmd.TopicID, err)
		}
	case "delete":
		if err := h.engine.Delete(ctx, conn, cmd.MessageID); err != nil {
			h.notifyError(conn, models.EventMessageError, cmd.TopicID, err)
		}
	case "react":
		if err := h.engine.React(ctx, conn, cmd.MessageID, cmd.Emoji); err != nil {
			h.notifyError(conn, models.EventMessageError, cmd.TopicID, err)
		}
	case "typing-start":
		if err := h.engine.TypingStart(conn, cmd.TopicID); err != nil {
			h.notifyError(conn, models.EventError, cmd.TopicID, err)
		}
	case "typing-stop":
		if err := h.engine.TypingStop(conn, cmd.TopicID); err != nil {
			h.notifyError(conn, models.EventError, cmd.TopicID, err)
		}
	default:
		h.engine.Notify(conn, models.TopicEvent{
			Type: models.EventError, Code: "bad_command", Error: "unknown action " + cmd.Action,
		})
	}
}

func (h *Handler) notifyError(conn *engine.Conn, eventType string, topicID string, err error) {
	h.engine.Notify(conn, models.TopicEvent{
		Type:    eventType,
		TopicID: topicID,
		Code:    errorCode(err),
		Error:   err.Error(),
	})
}

func (h *Handler) publishLifecycle(ctx context.Context, conn *engine.Conn, event, ip string, durationMs int64, reason, requestID, traceID string) {
	if h.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     conn.ID(),
			"duration_ms": durationMs,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":  conn.Identity().ID,
			"username": conn.Identity().Username,
			"ip":       ip,
		},
	}
	_ = h.publisher.Publish(ctx, "ws_events.topics", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(requestID, traceID))
}

// writePump drains the connection's event queue onto the socket. The queue
// channel closes on detach or drop, which closes the socket and unblocks the
// read loop.
func writePump(wsConn *websocket.Conn, conn *engine.Conn) {
	for payload := range conn.Events() {
		if err := wsConn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	wsConn.Close()
}

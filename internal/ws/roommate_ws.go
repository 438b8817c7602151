package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"campus-service/internal/models"
	"campus-service/internal/observability"
)

// Inbound frame types.
const (
	frameChatMessage = "chat_message"
	frameTyping      = "typing"
)

// Outbound frame types.
const (
	eventChatMessage     = "chat_message"
	eventTypingIndicator = "typing_indicator"
)

type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (int, error)
}

// ThreadPoster persists a roommate thread message on behalf of a participant.
type ThreadPoster interface {
	PostMessage(ctx context.Context, requestID, actorID int, content string) (models.MatchMessage, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RoommateChatHandler serves /ws/roommate-chat/:match_id connections.
type RoommateChatHandler struct {
	hub       *Hub
	gate      *Gate
	registry  ThreadPoster
	validator TokenValidator
}

// NewRoommateChatHandler constructs a RoommateChatHandler.
func NewRoommateChatHandler(hub *Hub, gate *Gate, registry ThreadPoster, validator TokenValidator) *RoommateChatHandler {
	return &RoommateChatHandler{hub: hub, gate: gate, registry: registry, validator: validator}
}

// Handle authenticates, authorizes against the match request and joins the
// thread room. No room state is created before the gate passes.
func (h *RoommateChatHandler) Handle(c *gin.Context) {
	matchID, err := strconv.Atoi(c.Param("match_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match request id"})
		return
	}

	ctx, span := otel.Tracer("campus-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.validator.ValidateToken(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	key := RoomKey{Kind: RoomRoommate, EntityID: matchID}
	if !h.gate.Authorize(ctx, userID, key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this thread"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        RoomRoommate,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	session := h.hub.Register(conn, info)
	h.hub.Join(session, key)

	observability.IncWSActive(string(RoomRoommate))
	publishWSEvent(ctx, key, "ws_connect", info, "")

	// The request context is canceled as soon as Handle returns; the read
	// loop outlives it, so detach while keeping the trace values.
	go h.readLoop(context.WithoutCancel(ctx), conn, session, key, userID)
}

func (h *RoommateChatHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *Session, key RoomKey, userID int) {
	var closeReason string
	defer func() {
		h.hub.Unregister(session)
		observability.DecWSActive(string(RoomRoommate))
		publishWSEvent(ctx, key, "ws_disconnect", session.Info(), closeReason)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishWSEvent(ctx, key, "ws_error", session.Info(), closeReason)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("malformed roommate chat frame from user %d: %v", userID, err)
			continue
		}

		switch frame.Type {
		case frameChatMessage:
			// Persist first; an unpersisted message is never delivered.
			if _, err := h.registry.PostMessage(ctx, key.EntityID, userID, frame.Message); err != nil {
				log.Printf("roommate message persist failed, frame dropped: %v", err)
				observability.IncWSEvent(string(RoomRoommate), "persist_error")
				continue
			}
			payload, _ := json.Marshal(models.RoommateEvent{Type: eventChatMessage, Message: frame.Message, SenderID: userID})
			h.hub.Broadcast(key, payload, nil)
		case frameTyping:
			// Transient: fan out to everyone but the typist, never persisted.
			payload, _ := json.Marshal(models.RoommateEvent{Type: eventTypingIndicator})
			h.hub.Broadcast(key, payload, session)
		}
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

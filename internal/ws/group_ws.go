package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"campus-service/internal/models"
	"campus-service/internal/observability"
	"campus-service/internal/repositories"
)

// GroupChatHandler serves /ws/study-group-chat/:group_id connections.
type GroupChatHandler struct {
	hub       *Hub
	gate      *Gate
	messages  repositories.GroupMessageRepository
	users     repositories.UserRepository
	validator TokenValidator
}

// NewGroupChatHandler constructs a GroupChatHandler.
func NewGroupChatHandler(hub *Hub, gate *Gate, messages repositories.GroupMessageRepository, users repositories.UserRepository, validator TokenValidator) *GroupChatHandler {
	return &GroupChatHandler{hub: hub, gate: gate, messages: messages, users: users, validator: validator}
}

// Handle authenticates, checks accepted membership and joins the group room.
func (h *GroupChatHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
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

	key := RoomKey{Kind: RoomStudyGroup, EntityID: groupID}
	if !h.gate.Authorize(ctx, userID, key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this group"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        RoomStudyGroup,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	session := h.hub.Register(conn, info)
	h.hub.Join(session, key)

	observability.IncWSActive(string(RoomStudyGroup))
	publishWSEvent(ctx, key, "ws_connect", info, "")

	// The request context is canceled as soon as Handle returns; the read
	// loop outlives it, so detach while keeping the trace values.
	go h.readLoop(context.WithoutCancel(ctx), conn, session, key, userID)
}

func (h *GroupChatHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *Session, key RoomKey, userID int) {
	var closeReason string
	defer func() {
		h.hub.Unregister(session)
		observability.DecWSActive(string(RoomStudyGroup))
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
			log.Printf("malformed group chat frame from user %d: %v", userID, err)
			continue
		}
		if frame.Type != frameChatMessage {
			continue
		}

		// Persist first; an unpersisted message is never delivered.
		msg, err := h.messages.Create(ctx, key.EntityID, userID, frame.Message)
		if err != nil {
			log.Printf("group message persist failed, frame dropped: %v", err)
			observability.IncWSEvent(string(RoomStudyGroup), "persist_error")
			continue
		}

		payload, _ := json.Marshal(models.GroupEvent{Type: eventChatMessage, Message: h.messageView(ctx, msg)})
		h.hub.Broadcast(key, payload, nil)
	}
}

func (h *GroupChatHandler) messageView(ctx context.Context, msg models.GroupMessage) *models.GroupMessageView {
	sender := models.UserRef{ID: msg.SenderID}
	if user, err := h.users.GetUser(ctx, msg.SenderID); err == nil {
		sender.Username = user.Username
	} else {
		log.Printf("sender lookup failed for user %d: %v", msg.SenderID, err)
	}
	return &models.GroupMessageView{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		Sender:    sender,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
	}
}

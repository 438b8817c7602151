package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-service/internal/matching"
	"campus-service/internal/models"
	"campus-service/internal/telemetry"
	"campus-service/internal/ws"
)

// MatchHandler manages match request endpoints and their message threads.
type MatchHandler struct {
	registry *matching.Registry
	hub      *ws.Hub
	audit    *telemetry.AuditEmitter
}

// NewMatchHandler constructs a MatchHandler.
func NewMatchHandler(registry *matching.Registry, hub *ws.Hub, audit *telemetry.AuditEmitter) *MatchHandler {
	return &MatchHandler{registry: registry, hub: hub, audit: audit}
}

// CreateRequest handles POST /api/match-requests.
func (h *MatchHandler) CreateRequest(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		ReceiverID int    `json:"receiver_id" binding:"required"`
		Message    string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.registry.CreateRequest(c.Request.Context(), userID, req.ReceiverID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrSelfRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send a match request to yourself"})
		case errors.Is(err, matching.ErrInvalidReceiver):
			c.JSON(http.StatusBadRequest, gin.H{"error": "receiver does not exist"})
		case errors.Is(err, matching.ErrDuplicateRequest):
			h.emitAudit(c, "ERROR", "duplicate match request")
			c.JSON(http.StatusConflict, gin.H{"error": "a match request already exists between these users"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create match request"})
		}
		return
	}

	h.emitAudit(c, "INFO", "Match request created")
	c.JSON(http.StatusCreated, request)
}

// ListRequests returns every request the caller is a party to, newest first.
func (h *MatchHandler) ListRequests(c *gin.Context) {
	userID := c.GetInt("userID")

	requests, err := h.registry.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_requests": requests})
}

// AcceptRequest handles POST /api/match-requests/:request_id/accept.
func (h *MatchHandler) AcceptRequest(c *gin.Context) {
	h.transition(c, h.registry.Accept, "Match request accepted")
}

// RejectRequest handles POST /api/match-requests/:request_id/reject.
func (h *MatchHandler) RejectRequest(c *gin.Context) {
	h.transition(c, h.registry.Reject, "Match request rejected")
}

func (h *MatchHandler) transition(c *gin.Context, apply func(ctx context.Context, requestID, actorID int) (models.MatchRequest, error), auditText string) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")

	request, err := apply(c.Request.Context(), requestID, userID)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "match request not found"})
		case errors.Is(err, matching.ErrForbidden):
			h.emitAudit(c, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "only the receiver may respond"})
		case errors.Is(err, matching.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": "request is no longer pending"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update match request"})
		}
		return
	}

	h.emitAudit(c, "INFO", auditText)
	c.JSON(http.StatusOK, request)
}

// GetMessages returns the thread of an accepted request and marks the
// caller's received messages as read.
func (h *MatchHandler) GetMessages(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")

	msgs, err := h.registry.GetThread(c.Request.Context(), requestID, userID)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "match request not found"})
		case errors.Is(err, matching.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to an accepted request's thread and fans it
// out to the live room.
func (h *MatchHandler) PostMessage(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.registry.PostMessage(c.Request.Context(), requestID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "match request not found"})
		case errors.Is(err, matching.ErrForbidden):
			h.emitAudit(c, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		case errors.Is(err, matching.ErrNotAcceptable):
			c.JSON(http.StatusConflict, gin.H{"error": "messages are only allowed on accepted requests"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	payload, _ := json.Marshal(models.RoommateEvent{Type: "chat_message", Message: msg.Content, SenderID: msg.SenderID})
	h.hub.Broadcast(ws.RoomKey{Kind: ws.RoomRoommate, EntityID: requestID}, payload, nil)

	h.emitAudit(c, "INFO", "Match message sent")
	c.JSON(http.StatusCreated, msg)
}

func (h *MatchHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

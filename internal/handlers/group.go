package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-service/internal/models"
	"campus-service/internal/repositories"
	"campus-service/internal/telemetry"
	"campus-service/internal/ws"
)

// GroupHandler manages study group endpoints.
type GroupHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.GroupMessageRepository
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, messageRepo repositories.GroupMessageRepository, userRepo repositories.UserRepository, profileRepo repositories.ProfileRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		hub:         hub,
		audit:       audit,
	}
}

// CreateGroup handles POST /api/study-groups. The creator becomes an
// accepted member in the same transaction.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Course      string   `json:"course" binding:"required"`
		SubjectTags []string `json:"subject_tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), models.StudyGroup{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		Course:      req.Course,
		SubjectTags: req.SubjectTags,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Study group created")
	c.JSON(http.StatusCreated, group)
}

// ListGroups returns all study groups, newest first.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupRepo.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// ListMyGroups returns groups where the caller has a membership row.
func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// ListSuggestedGroups returns groups whose subject tags overlap the
// caller's profile interests.
func (h *GroupHandler) ListSuggestedGroups(c *gin.Context) {
	userID := c.GetInt("userID")

	profile, err := h.profileRepo.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusOK, gin.H{"groups": []models.StudyGroup{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	groups, err := h.groupRepo.ListSuggestedGroups(c.Request.Context(), splitInterests(profile.Interests), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns one group with its membership roster.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}

	memberships, err := h.groupRepo.ListMemberships(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group, "members": memberships})
}

// UpdateGroup replaces the editable group fields. Creator only.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}
	if group.CreatorID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator may edit the group"})
		return
	}

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Course      string   `json:"course" binding:"required"`
		SubjectTags []string `json:"subject_tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group.Name = req.Name
	group.Description = req.Description
	group.Course = req.Course
	group.SubjectTags = req.SubjectTags

	saved, err := h.groupRepo.UpdateGroup(c.Request.Context(), group)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update group"})
		return
	}

	h.emitAudit(c, "INFO", "Study group updated")
	c.JSON(http.StatusOK, saved)
}

// DeleteGroup removes a group. Creator only; memberships and messages
// cascade.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}
	if group.CreatorID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator may delete the group"})
		return
	}

	if err := h.groupRepo.DeleteGroup(c.Request.Context(), groupID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete group"})
		return
	}

	h.emitAudit(c, "INFO", "Study group deleted")
	c.Status(http.StatusNoContent)
}

// JoinGroup files a membership request. The row stays unaccepted until the
// creator approves it.
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	membership, err := h.groupRepo.RequestMembership(c.Request.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyRequested):
			c.JSON(http.StatusConflict, gin.H{"error": "membership already requested"})
		case errors.Is(err, repositories.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not request membership"})
		}
		return
	}

	h.emitAudit(c, "INFO", "Group membership requested")
	c.JSON(http.StatusCreated, membership)
}

// AcceptMember approves a pending membership. Creator only.
func (h *GroupHandler) AcceptMember(c *gin.Context) {
	groupID, memberID, ok := parseGroupMemberIDs(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}
	if group.CreatorID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator may accept members"})
		return
	}

	if err := h.groupRepo.AcceptMembership(c.Request.Context(), groupID, memberID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept member"})
		return
	}

	h.emitAudit(c, "INFO", "Group member accepted")
	c.Status(http.StatusNoContent)
}

// RemoveMember deletes a membership. The creator may remove anyone; other
// members may only remove themselves.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, memberID, ok := parseGroupMemberIDs(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}
	if userID != group.CreatorID && userID != memberID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to remove this member"})
		return
	}
	if memberID == group.CreatorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the creator cannot leave the group"})
		return
	}

	if err := h.groupRepo.RemoveMembership(c.Request.Context(), groupID, memberID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.emitAudit(c, "INFO", "Group member removed")
	c.Status(http.StatusNoContent)
}

// GetMessages returns the group's messages for accepted members.
func (h *GroupHandler) GetMessages(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.requireAcceptedMember(c, groupID, userID) {
		return
	}

	msgs, err := h.messageRepo.ListForGroup(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	usernameByID := map[int]string{}
	if len(senderIDs) > 0 {
		users, err := h.userRepo.BulkUsers(c.Request.Context(), senderIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
			return
		}
		for _, u := range users {
			usernameByID[u.ID] = u.Username
		}
	}

	views := make([]models.GroupMessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.GroupMessageView{
			ID:        m.ID,
			GroupID:   m.GroupID,
			Sender:    models.UserRef{ID: m.SenderID, Username: usernameByID[m.SenderID]},
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// PostMessage persists a group message and fans it out to the live room.
func (h *GroupHandler) PostMessage(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.requireAcceptedMember(c, groupID, userID) {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.Create(c.Request.Context(), groupID, userID, req.Content)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	view := models.GroupMessageView{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		Sender:    models.UserRef{ID: msg.SenderID},
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
	}
	if sender, err := h.userRepo.GetUser(c.Request.Context(), msg.SenderID); err == nil {
		view.Sender.Username = sender.Username
	} else {
		log.Printf("sender lookup failed for user %d: %v", msg.SenderID, err)
	}

	payload, _ := json.Marshal(models.GroupEvent{Type: "chat_message", Message: &view})
	h.hub.Broadcast(ws.RoomKey{Kind: ws.RoomStudyGroup, EntityID: groupID}, payload, nil)

	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, view)
}

func (h *GroupHandler) requireAcceptedMember(c *gin.Context, groupID, userID int) bool {
	member, err := h.groupRepo.IsAcceptedMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return false
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not an accepted member"})
		return false
	}
	return true
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func parseGroupID(c *gin.Context) (int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return groupID, true
}

func parseGroupMemberIDs(c *gin.Context) (int, int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, 0, false
	}
	memberID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, 0, false
	}
	return groupID, memberID, true
}

func splitInterests(raw string) []string {
	parts := strings.Split(raw, ",")
	interests := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			interests = append(interests, trimmed)
		}
	}
	return interests
}

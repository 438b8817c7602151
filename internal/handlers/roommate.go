package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-service/internal/matching"
	"campus-service/internal/models"
	"campus-service/internal/repositories"
	"campus-service/internal/telemetry"
)

// RoommateHandler serves the ranked candidate listing and the caller's own
// roommate preference profile.
type RoommateHandler struct {
	engine   *matching.Engine
	profiles repositories.ProfileRepository
	audit    *telemetry.AuditEmitter
}

// NewRoommateHandler constructs a RoommateHandler.
func NewRoommateHandler(engine *matching.Engine, profiles repositories.ProfileRepository, audit *telemetry.AuditEmitter) *RoommateHandler {
	return &RoommateHandler{engine: engine, profiles: profiles, audit: audit}
}

// ListCandidates handles GET /api/roommates. Candidates are scored against
// the caller on every request and returned by score descending.
func (h *RoommateHandler) ListCandidates(c *gin.Context) {
	userID := c.GetInt("userID")

	candidates, err := h.engine.ListCandidates(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, matching.ErrProfileIncomplete) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile incomplete"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load candidates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roommates": candidates})
}

// GetCandidate handles GET /api/roommates/:user_id.
func (h *RoommateHandler) GetCandidate(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID := c.GetInt("userID")
	if otherID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot view yourself as a candidate"})
		return
	}

	candidate, err := h.engine.GetCandidate(c.Request.Context(), userID, otherID)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrProfileIncomplete):
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile incomplete"})
		case errors.Is(err, matching.ErrCandidateNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load candidate"})
		}
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// GetProfile handles GET /api/roommate-profile.
func (h *RoommateHandler) GetProfile(c *gin.Context) {
	userID := c.GetInt("userID")

	profile, err := h.profiles.GetRoommateProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "roommate profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile handles PUT /api/roommate-profile. Creates the profile on
// first write, replaces it afterwards.
func (h *RoommateHandler) PutProfile(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		SmokingPreference  string   `json:"smoking_preference"`
		DrinkingPreference string   `json:"drinking_preference"`
		SleepHabits        string   `json:"sleep_habits"`
		StudyHabits        string   `json:"study_habits"`
		GuestsPreference   string   `json:"guests_preference"`
		CleanlinessLevel   int      `json:"cleanliness_level" binding:"required,min=1,max=5"`
		MaxRentBudget      *float64 `json:"max_rent_budget"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxRentBudget != nil && *req.MaxRentBudget <= 0 {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_rent_budget must be positive"})
		return
	}

	profile := models.RoommateProfile{
		UserID:             userID,
		SmokingPreference:  defaultPreference(req.SmokingPreference),
		DrinkingPreference: defaultPreference(req.DrinkingPreference),
		SleepHabits:        defaultPreference(req.SleepHabits),
		StudyHabits:        defaultPreference(req.StudyHabits),
		GuestsPreference:   defaultPreference(req.GuestsPreference),
		CleanlinessLevel:   req.CleanlinessLevel,
		MaxRentBudget:      req.MaxRentBudget,
	}

	saved, err := h.profiles.UpsertRoommateProfile(c.Request.Context(), profile)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}

	h.emitAudit(c, "INFO", "Roommate profile saved")
	c.JSON(http.StatusOK, saved)
}

func defaultPreference(value string) string {
	if value == "" {
		return models.NoPreference
	}
	return value
}

func (h *RoommateHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

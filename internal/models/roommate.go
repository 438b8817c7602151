package models

import "time"

// Preference enum values shared by the categorical roommate attributes.
// NoPreference is the neutral value and excludes the factor from scoring.
const (
	NoPreference = "no_preference"
)

// Match request lifecycle states.
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusRejected = "rejected"
	MatchStatusNone     = "none"
)

// RoommateProfile holds a user's living preferences. Mutated only by its owner.
type RoommateProfile struct {
	UserID             int       `db:"user_id" json:"user_id"`
	SmokingPreference  string    `db:"smoking_preference" json:"smoking_preference"`
	DrinkingPreference string    `db:"drinking_preference" json:"drinking_preference"`
	SleepHabits        string    `db:"sleep_habits" json:"sleep_habits"`
	StudyHabits        string    `db:"study_habits" json:"study_habits"`
	GuestsPreference   string    `db:"guests_preference" json:"guests_preference"`
	CleanlinessLevel   int       `db:"cleanliness_level" json:"cleanliness_level"`
	MaxRentBudget      *float64  `db:"max_rent_budget" json:"max_rent_budget,omitempty"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// MatchRequest is a roommate match request between two distinct users.
// At most one request exists per unordered user pair.
type MatchRequest struct {
	ID            int        `db:"id" json:"id"`
	SenderID      int        `db:"sender_id" json:"sender_id"`
	ReceiverID    int        `db:"receiver_id" json:"receiver_id"`
	Status        string     `db:"status" json:"status"`
	Message       string     `db:"message" json:"message"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// Involves reports whether the user is a party to the request.
func (r MatchRequest) Involves(userID int) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// OtherParty returns the counterpart of userID on the request.
func (r MatchRequest) OtherParty(userID int) int {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}

// MatchMessage belongs to exactly one accepted match request.
type MatchMessage struct {
	ID             int       `db:"id" json:"id"`
	MatchRequestID int       `db:"match_request_id" json:"match_request_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CompatibilityScore is the cached score for an unordered user pair
// (user1_id < user2_id). Recomputed on every lookup; never trusted stale.
type CompatibilityScore struct {
	User1ID        int       `db:"user1_id" json:"user1_id"`
	User2ID        int       `db:"user2_id" json:"user2_id"`
	Score          float64   `db:"score" json:"score"`
	LastCalculated time.Time `db:"last_calculated" json:"last_calculated"`
}

// MatchCandidate is one entry of the ranked roommate listing.
type MatchCandidate struct {
	User            User            `json:"user"`
	Profile         UserProfile     `json:"profile"`
	RoommateProfile RoommateProfile `json:"roommate_profile"`
	Score           float64         `json:"compatibility_score"`
	MatchStatus     string          `json:"match_status"`
}

// RoommateEvent is the outbound frame on roommate chat connections.
type RoommateEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	SenderID int    `json:"sender_id,omitempty"`
}

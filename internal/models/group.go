package models

import (
	"time"

	"github.com/lib/pq"
)

// StudyGroup is a course study group. The creator is an accepted member
// from the moment of creation.
type StudyGroup struct {
	ID          int            `db:"id" json:"id"`
	CreatorID   int            `db:"creator_id" json:"creator_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Course      string         `db:"course" json:"course"`
	SubjectTags pq.StringArray `db:"subject_tags" json:"subject_tags"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// GroupMembership links a user to a group. Unaccepted until the creator
// approves, except the creator's own row.
type GroupMembership struct {
	GroupID     int       `db:"group_id" json:"group_id"`
	UserID      int       `db:"user_id" json:"user_id"`
	IsAccepted  bool      `db:"is_accepted" json:"is_accepted"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

// GroupMessage is a persisted study-group chat message.
type GroupMessage struct {
	ID        int       `db:"id" json:"id"`
	GroupID   int       `db:"group_id" json:"group_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupMessageView is the message shape sent to clients, with the sender
// resolved to display attributes.
type GroupMessageView struct {
	ID        int       `json:"id"`
	GroupID   int       `json:"group"`
	Sender    UserRef   `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserRef is the minimal sender identity embedded in message views.
type UserRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// GroupEvent is the outbound frame on study-group chat connections.
type GroupEvent struct {
	Type    string            `json:"type"`
	Message *GroupMessageView `json:"message,omitempty"`
}

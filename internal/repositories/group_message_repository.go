package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"campus-service/internal/models"
)

// GroupMessageRepository defines interactions for study-group messages.
type GroupMessageRepository interface {
	Create(ctx context.Context, groupID, senderID int, content string) (models.GroupMessage, error)
	ListForGroup(ctx context.Context, groupID int) ([]models.GroupMessage, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// Create persists a group message.
func (r *GroupMessageRepo) Create(ctx context.Context, groupID, senderID int, content string) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages (group_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, group_id, sender_id, content, created_at`,
		groupID, senderID, content).StructScan(&msg)
	return msg, err
}

// ListForGroup returns messages ordered by creation time ascending.
func (r *GroupMessageRepo) ListForGroup(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, group_id, sender_id, content, created_at FROM group_messages WHERE group_id=$1 ORDER BY created_at ASC`, groupID)
	return msgs, err
}

package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"campus-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MatchMessageRepository defines interactions for roommate thread messages.
type MatchMessageRepository interface {
	Create(ctx context.Context, requestID, senderID int, content string) (models.MatchMessage, error)
	ListForRequest(ctx context.Context, requestID int) ([]models.MatchMessage, error)
	MarkReadForRecipient(ctx context.Context, requestID, recipientID int) error
}

// MatchMessageRepo is a sqlx-backed implementation.
type MatchMessageRepo struct {
	db *sqlx.DB
}

// NewMatchMessageRepo constructs a MatchMessageRepo.
func NewMatchMessageRepo(db *sqlx.DB) *MatchMessageRepo {
	return &MatchMessageRepo{db: db}
}

// Create persists a thread message.
func (r *MatchMessageRepo) Create(ctx context.Context, requestID, senderID int, content string) (models.MatchMessage, error) {
	var msg models.MatchMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO match_messages (match_request_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, match_request_id, sender_id, content, read, created_at`,
		requestID, senderID, content).StructScan(&msg)
	return msg, err
}

// ListForRequest returns the thread ordered by creation time ascending.
func (r *MatchMessageRepo) ListForRequest(ctx context.Context, requestID int) ([]models.MatchMessage, error) {
	var msgs []models.MatchMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, match_request_id, sender_id, content, read, created_at FROM match_messages WHERE match_request_id=$1 ORDER BY created_at ASC`, requestID)
	return msgs, err
}

// MarkReadForRecipient flags every message the recipient has not sent as
// read. Re-running is a no-op.
func (r *MatchMessageRepo) MarkReadForRecipient(ctx context.Context, requestID, recipientID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE match_messages SET read = TRUE WHERE match_request_id=$1 AND sender_id <> $2 AND read = FALSE`, requestID, recipientID)
	return err
}

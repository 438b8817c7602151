package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"campus-service/internal/models"
)

var (
	ErrRequestNotFound  = errors.New("match request not found")
	ErrDuplicateRequest = errors.New("match request already exists for pair")
)

const matchRequestColumns = `id, sender_id, receiver_id, status, message, created_at, last_message_at`

// MatchRequestRepository abstracts match request persistence.
type MatchRequestRepository interface {
	Create(ctx context.Context, senderID, receiverID int, message string) (models.MatchRequest, error)
	GetByID(ctx context.Context, requestID int) (models.MatchRequest, error)
	FindByPair(ctx context.Context, userA, userB int) (models.MatchRequest, error)
	ListForUser(ctx context.Context, userID int) ([]models.MatchRequest, error)
	TransitionStatus(ctx context.Context, requestID, receiverID int, status string) (models.MatchRequest, error)
	TouchLastMessage(ctx context.Context, requestID int) error
}

// MatchRequestRepo is a sqlx implementation of MatchRequestRepository.
type MatchRequestRepo struct {
	db *sqlx.DB
}

// NewMatchRequestRepo constructs a MatchRequestRepo.
func NewMatchRequestRepo(db *sqlx.DB) *MatchRequestRepo {
	return &MatchRequestRepo{db: db}
}

// Create inserts a pending request. The unique pair index makes the
// duplicate check race-free: a concurrent insert for the same unordered
// pair surfaces as ErrDuplicateRequest.
func (r *MatchRequestRepo) Create(ctx context.Context, senderID, receiverID int, message string) (models.MatchRequest, error) {
	var req models.MatchRequest
	err := r.db.QueryRowxContext(ctx, `INSERT INTO match_requests (sender_id, receiver_id, status, message) VALUES ($1, $2, 'pending', $3) RETURNING `+matchRequestColumns,
		senderID, receiverID, message).StructScan(&req)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.MatchRequest{}, ErrDuplicateRequest
		}
		return models.MatchRequest{}, err
	}
	return req, nil
}

// GetByID fetches a request by id.
func (r *MatchRequestRepo) GetByID(ctx context.Context, requestID int) (models.MatchRequest, error) {
	var req models.MatchRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+matchRequestColumns+` FROM match_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MatchRequest{}, ErrRequestNotFound
	}
	return req, err
}

// FindByPair returns the request between two users regardless of direction.
func (r *MatchRequestRepo) FindByPair(ctx context.Context, userA, userB int) (models.MatchRequest, error) {
	var req models.MatchRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+matchRequestColumns+` FROM match_requests
        WHERE LEAST(sender_id, receiver_id) = LEAST($1::int, $2::int)
          AND GREATEST(sender_id, receiver_id) = GREATEST($1::int, $2::int)`, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MatchRequest{}, ErrRequestNotFound
	}
	return req, err
}

// ListForUser returns requests the user sent or received, newest first.
func (r *MatchRequestRepo) ListForUser(ctx context.Context, userID int) ([]models.MatchRequest, error) {
	var reqs []models.MatchRequest
	err := r.db.SelectContext(ctx, &reqs, `SELECT `+matchRequestColumns+` FROM match_requests WHERE sender_id=$1 OR receiver_id=$1 ORDER BY created_at DESC`, userID)
	return reqs, err
}

// TransitionStatus moves a pending request to the given status, on behalf
// of its receiver. The WHERE clause makes concurrent accept/reject calls
// mutually exclusive; zero rows means the caller must inspect the request
// to tell a missing row, a foreign actor and a settled request apart.
func (r *MatchRequestRepo) TransitionStatus(ctx context.Context, requestID, receiverID int, status string) (models.MatchRequest, error) {
	var req models.MatchRequest
	err := r.db.QueryRowxContext(ctx, `UPDATE match_requests SET status=$1 WHERE id=$2 AND receiver_id=$3 AND status='pending' RETURNING `+matchRequestColumns,
		status, requestID, receiverID).StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MatchRequest{}, ErrRequestNotFound
	}
	return req, err
}

// TouchLastMessage bumps last_message_at to now.
func (r *MatchRequestRepo) TouchLastMessage(ctx context.Context, requestID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE match_requests SET last_message_at = NOW() WHERE id=$1`, requestID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}

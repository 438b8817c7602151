package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ScoreRepository owns the compatibility score cache. Scores are always
// recomputed before an upsert; the stored row exists for other consumers,
// not as a source of truth for the matching engine.
type ScoreRepository interface {
	Upsert(ctx context.Context, userA, userB int, score float64) error
}

// ScoreRepo is a sqlx implementation of ScoreRepository.
type ScoreRepo struct {
	db *sqlx.DB
}

// NewScoreRepo constructs a ScoreRepo.
func NewScoreRepo(db *sqlx.DB) *ScoreRepo {
	return &ScoreRepo{db: db}
}

// Upsert stores the score for the unordered pair, canonicalized so
// user1_id < user2_id. Concurrent recomputations are last-write-wins.
func (r *ScoreRepo) Upsert(ctx context.Context, userA, userB int, score float64) error {
	if userA > userB {
		userA, userB = userB, userA
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO compatibility_scores (user1_id, user2_id, score, last_calculated) VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user1_id, user2_id) DO UPDATE SET score = EXCLUDED.score, last_calculated = NOW()`, userA, userB, score)
	return err
}

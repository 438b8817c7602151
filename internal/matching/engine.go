package matching

import (
	"context"
	"errors"
	"log"
	"sort"

	"campus-service/internal/models"
	"campus-service/internal/repositories"
)

var (
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrCandidateNotFound = errors.New("candidate not found")
)

// Engine produces ranked roommate candidates for a user.
type Engine struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	scores   repositories.ScoreRepository
	requests repositories.MatchRequestRepository
}

// NewEngine constructs an Engine.
func NewEngine(users repositories.UserRepository, profiles repositories.ProfileRepository, scores repositories.ScoreRepository, requests repositories.MatchRequestRepository) *Engine {
	return &Engine{users: users, profiles: profiles, scores: scores, requests: requests}
}

// ListCandidates scores every other user with a roommate profile against
// the caller and returns them ordered by score descending. Scores are
// recomputed on every call and written back to the cache; ties keep the
// candidates' id order.
func (e *Engine) ListCandidates(ctx context.Context, userID int) ([]models.MatchCandidate, error) {
	own, err := e.loadOwnProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}

	others, err := e.profiles.ListRoommateProfilesExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.MatchCandidate, 0, len(others))
	for _, other := range others {
		candidate, err := e.assemble(ctx, userID, own, other)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// GetCandidate is the single-candidate variant of ListCandidates.
func (e *Engine) GetCandidate(ctx context.Context, userID, otherID int) (models.MatchCandidate, error) {
	own, err := e.loadOwnProfiles(ctx, userID)
	if err != nil {
		return models.MatchCandidate{}, err
	}

	other, err := e.profiles.GetRoommateProfile(ctx, otherID)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		return models.MatchCandidate{}, ErrCandidateNotFound
	}
	if err != nil {
		return models.MatchCandidate{}, err
	}
	return e.assemble(ctx, userID, own, other)
}

func (e *Engine) loadOwnProfiles(ctx context.Context, userID int) (models.RoommateProfile, error) {
	if _, err := e.profiles.GetUserProfile(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return models.RoommateProfile{}, ErrProfileIncomplete
		}
		return models.RoommateProfile{}, err
	}
	own, err := e.profiles.GetRoommateProfile(ctx, userID)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		return models.RoommateProfile{}, ErrProfileIncomplete
	}
	return own, err
}

func (e *Engine) assemble(ctx context.Context, userID int, own, other models.RoommateProfile) (models.MatchCandidate, error) {
	score := Score(own, other)
	if err := e.scores.Upsert(ctx, userID, other.UserID, score); err != nil {
		// The cache is advisory; a failed upsert must not hide candidates.
		log.Printf("compatibility score upsert failed for pair (%d,%d): %v", userID, other.UserID, err)
	}

	status := models.MatchStatusNone
	req, err := e.requests.FindByPair(ctx, userID, other.UserID)
	switch {
	case err == nil:
		status = req.Status
	case !errors.Is(err, repositories.ErrRequestNotFound):
		return models.MatchCandidate{}, err
	}

	user, err := e.users.GetUser(ctx, other.UserID)
	if err != nil {
		return models.MatchCandidate{}, err
	}
	profile, err := e.profiles.GetUserProfile(ctx, other.UserID)
	if err != nil && !errors.Is(err, repositories.ErrProfileNotFound) {
		return models.MatchCandidate{}, err
	}

	return models.MatchCandidate{
		User:            user,
		Profile:         profile,
		RoommateProfile: other,
		Score:           score,
		MatchStatus:     status,
	}, nil
}

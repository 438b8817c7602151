package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"campus-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads user profiles and owns roommate preference
// profiles. Roommate profiles are written only through UpsertRoommateProfile,
// always on behalf of the owning user.
type ProfileRepository interface {
	GetUserProfile(ctx context.Context, userID int) (models.UserProfile, error)
	GetRoommateProfile(ctx context.Context, userID int) (models.RoommateProfile, error)
	UpsertRoommateProfile(ctx context.Context, profile models.RoommateProfile) (models.RoommateProfile, error)
	ListRoommateProfilesExcept(ctx context.Context, userID int) ([]models.RoommateProfile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetUserProfile fetches the display profile for a user.
func (r *ProfileRepo) GetUserProfile(ctx context.Context, userID int) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, bio, interests FROM user_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// GetRoommateProfile fetches the roommate preference profile for a user.
func (r *ProfileRepo) GetRoommateProfile(ctx context.Context, userID int) (models.RoommateProfile, error) {
	var profile models.RoommateProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, smoking_preference, drinking_preference, sleep_habits, study_habits, guests_preference, cleanliness_level, max_rent_budget, updated_at FROM roommate_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoommateProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// UpsertRoommateProfile creates or replaces the owner's preference profile.
func (r *ProfileRepo) UpsertRoommateProfile(ctx context.Context, profile models.RoommateProfile) (models.RoommateProfile, error) {
	var saved models.RoommateProfile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO roommate_profiles
            (user_id, smoking_preference, drinking_preference, sleep_habits, study_habits, guests_preference, cleanliness_level, max_rent_budget, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            smoking_preference = EXCLUDED.smoking_preference,
            drinking_preference = EXCLUDED.drinking_preference,
            sleep_habits = EXCLUDED.sleep_habits,
            study_habits = EXCLUDED.study_habits,
            guests_preference = EXCLUDED.guests_preference,
            cleanliness_level = EXCLUDED.cleanliness_level,
            max_rent_budget = EXCLUDED.max_rent_budget,
            updated_at = NOW()
        RETURNING user_id, smoking_preference, drinking_preference, sleep_habits, study_habits, guests_preference, cleanliness_level, max_rent_budget, updated_at`,
		profile.UserID, profile.SmokingPreference, profile.DrinkingPreference, profile.SleepHabits,
		profile.StudyHabits, profile.GuestsPreference, profile.CleanlinessLevel, profile.MaxRentBudget).
		StructScan(&saved)
	return saved, err
}

// ListRoommateProfilesExcept returns every roommate profile except the
// given user's, in stable id order.
func (r *ProfileRepo) ListRoommateProfilesExcept(ctx context.Context, userID int) ([]models.RoommateProfile, error) {
	var profiles []models.RoommateProfile
	err := r.db.SelectContext(ctx, &profiles, `SELECT user_id, smoking_preference, drinking_preference, sleep_habits, study_habits, guests_preference, cleanliness_level, max_rent_budget, updated_at FROM roommate_profiles WHERE user_id <> $1 ORDER BY user_id ASC`, userID)
	return profiles, err
}

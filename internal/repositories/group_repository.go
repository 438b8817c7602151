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
	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrAlreadyRequested   = errors.New("membership already requested")
)

const groupColumns = `id, creator_id, name, description, course, subject_tags, created_at`

// GroupRepository abstracts study group and membership persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error)
	GetGroup(ctx context.Context, groupID int) (models.StudyGroup, error)
	ListGroups(ctx context.Context) ([]models.StudyGroup, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.StudyGroup, error)
	ListSuggestedGroups(ctx context.Context, interests []string, excludeUserID int) ([]models.StudyGroup, error)
	UpdateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error)
	DeleteGroup(ctx context.Context, groupID int) error
	RequestMembership(ctx context.Context, groupID, userID int) (models.GroupMembership, error)
	AcceptMembership(ctx context.Context, groupID, userID int) error
	RemoveMembership(ctx context.Context, groupID, userID int) error
	ListMemberships(ctx context.Context, groupID int) ([]models.GroupMembership, error)
	IsAcceptedMember(ctx context.Context, groupID, userID int) (bool, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup inserts a group and the creator's accepted membership in one
// transaction.
func (r *GroupRepo) CreateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.StudyGroup{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var saved models.StudyGroup
	if err = tx.QueryRowxContext(ctx, `INSERT INTO study_groups (creator_id, name, description, course, subject_tags) VALUES ($1, $2, $3, $4, $5) RETURNING `+groupColumns,
		group.CreatorID, group.Name, group.Description, group.Course, group.SubjectTags).StructScan(&saved); err != nil {
		return models.StudyGroup{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO group_memberships (group_id, user_id, is_accepted) VALUES ($1, $2, TRUE)`, saved.ID, saved.CreatorID); err != nil {
		return models.StudyGroup{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.StudyGroup{}, err
	}
	return saved, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.StudyGroup, error) {
	var group models.StudyGroup
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM study_groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StudyGroup{}, ErrGroupNotFound
	}
	return group, err
}

// ListGroups returns all groups, newest first.
func (r *GroupRepo) ListGroups(ctx context.Context) ([]models.StudyGroup, error) {
	var groups []models.StudyGroup
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM study_groups ORDER BY created_at DESC`)
	return groups, err
}

// ListGroupsForUser returns groups where the user has a membership row.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.StudyGroup, error) {
	var groups []models.StudyGroup
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.creator_id, g.name, g.description, g.course, g.subject_tags, g.created_at
        FROM study_groups g INNER JOIN group_memberships gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// ListSuggestedGroups returns groups whose subject tags overlap the given
// interests, excluding groups the user created.
func (r *GroupRepo) ListSuggestedGroups(ctx context.Context, interests []string, excludeUserID int) ([]models.StudyGroup, error) {
	if len(interests) == 0 {
		return []models.StudyGroup{}, nil
	}
	var groups []models.StudyGroup
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM study_groups WHERE subject_tags && $1 AND creator_id <> $2 ORDER BY created_at DESC`,
		pq.Array(interests), excludeUserID)
	return groups, err
}

// UpdateGroup replaces the editable fields of a group.
func (r *GroupRepo) UpdateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error) {
	var saved models.StudyGroup
	err := r.db.QueryRowxContext(ctx, `UPDATE study_groups SET name=$1, description=$2, course=$3, subject_tags=$4 WHERE id=$5 RETURNING `+groupColumns,
		group.Name, group.Description, group.Course, group.SubjectTags, group.ID).StructScan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StudyGroup{}, ErrGroupNotFound
	}
	return saved, err
}

// DeleteGroup removes a group; memberships and messages cascade.
func (r *GroupRepo) DeleteGroup(ctx context.Context, groupID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM study_groups WHERE id=$1`, groupID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// RequestMembership inserts an unaccepted membership row.
func (r *GroupRepo) RequestMembership(ctx context.Context, groupID, userID int) (models.GroupMembership, error) {
	var membership models.GroupMembership
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_memberships (group_id, user_id, is_accepted) VALUES ($1, $2, FALSE) RETURNING group_id, user_id, is_accepted, requested_at`,
		groupID, userID).StructScan(&membership)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return models.GroupMembership{}, ErrAlreadyRequested
			case "23503":
				return models.GroupMembership{}, ErrGroupNotFound
			}
		}
		return models.GroupMembership{}, err
	}
	return membership, nil
}

// AcceptMembership flips is_accepted for a pending membership.
func (r *GroupRepo) AcceptMembership(ctx context.Context, groupID, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE group_memberships SET is_accepted = TRUE WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// RemoveMembership deletes a membership row.
func (r *GroupRepo) RemoveMembership(ctx context.Context, groupID, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_memberships WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// ListMemberships returns all membership rows for a group.
func (r *GroupRepo) ListMemberships(ctx context.Context, groupID int) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	err := r.db.SelectContext(ctx, &memberships, `SELECT group_id, user_id, is_accepted, requested_at FROM group_memberships WHERE group_id=$1 ORDER BY requested_at ASC`, groupID)
	return memberships, err
}

// IsAcceptedMember checks for an accepted membership.
func (r *GroupRepo) IsAcceptedMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_memberships WHERE group_id=$1 AND user_id=$2 AND is_accepted = TRUE)`, groupID, userID)
	return exists, err
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-service/internal/models"
	"campus-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UserExists(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) GetUserProfile(ctx context.Context, userID int) (models.UserProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetRoommateProfile(ctx context.Context, userID int) (models.RoommateProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.RoommateProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.RoommateProfile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) UpsertRoommateProfile(ctx context.Context, profile models.RoommateProfile) (models.RoommateProfile, error) {
	args := m.Called(ctx, profile)
	var saved models.RoommateProfile
	if val := args.Get(0); val != nil {
		saved = val.(models.RoommateProfile)
	}
	return saved, args.Error(1)
}

func (m *ProfileRepositoryMock) ListRoommateProfilesExcept(ctx context.Context, userID int) ([]models.RoommateProfile, error) {
	args := m.Called(ctx, userID)
	var profiles []models.RoommateProfile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.RoommateProfile)
	}
	return profiles, args.Error(1)
}

type MatchRequestRepositoryMock struct {
	mock.Mock
}

func (m *MatchRequestRepositoryMock) Create(ctx context.Context, senderID, receiverID int, message string) (models.MatchRequest, error) {
	args := m.Called(ctx, senderID, receiverID, message)
	var req models.MatchRequest
	if val := args.Get(0); val != nil {
		req = val.(models.MatchRequest)
	}
	return req, args.Error(1)
}

func (m *MatchRequestRepositoryMock) GetByID(ctx context.Context, requestID int) (models.MatchRequest, error) {
	args := m.Called(ctx, requestID)
	var req models.MatchRequest
	if val := args.Get(0); val != nil {
		req = val.(models.MatchRequest)
	}
	return req, args.Error(1)
}

func (m *MatchRequestRepositoryMock) FindByPair(ctx context.Context, userA, userB int) (models.MatchRequest, error) {
	args := m.Called(ctx, userA, userB)
	var req models.MatchRequest
	if val := args.Get(0); val != nil {
		req = val.(models.MatchRequest)
	}
	return req, args.Error(1)
}

func (m *MatchRequestRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.MatchRequest, error) {
	args := m.Called(ctx, userID)
	var reqs []models.MatchRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.MatchRequest)
	}
	return reqs, args.Error(1)
}

func (m *MatchRequestRepositoryMock) TransitionStatus(ctx context.Context, requestID, receiverID int, status string) (models.MatchRequest, error) {
	args := m.Called(ctx, requestID, receiverID, status)
	var req models.MatchRequest
	if val := args.Get(0); val != nil {
		req = val.(models.MatchRequest)
	}
	return req, args.Error(1)
}

func (m *MatchRequestRepositoryMock) TouchLastMessage(ctx context.Context, requestID int) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

type MatchMessageRepositoryMock struct {
	mock.Mock
}

func (m *MatchMessageRepositoryMock) Create(ctx context.Context, requestID, senderID int, content string) (models.MatchMessage, error) {
	args := m.Called(ctx, requestID, senderID, content)
	var msg models.MatchMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.MatchMessage)
	}
	return msg, args.Error(1)
}

func (m *MatchMessageRepositoryMock) ListForRequest(ctx context.Context, requestID int) ([]models.MatchMessage, error) {
	args := m.Called(ctx, requestID)
	var msgs []models.MatchMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.MatchMessage)
	}
	return msgs, args.Error(1)
}

func (m *MatchMessageRepositoryMock) MarkReadForRecipient(ctx context.Context, requestID, recipientID int) error {
	args := m.Called(ctx, requestID, recipientID)
	return args.Error(0)
}

type ScoreRepositoryMock struct {
	mock.Mock
}

func (m *ScoreRepositoryMock) Upsert(ctx context.Context, userA, userB int, score float64) error {
	args := m.Called(ctx, userA, userB, score)
	return args.Error(0)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error) {
	args := m.Called(ctx, group)
	var saved models.StudyGroup
	if val := args.Get(0); val != nil {
		saved = val.(models.StudyGroup)
	}
	return saved, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.StudyGroup, error) {
	args := m.Called(ctx, groupID)
	var group models.StudyGroup
	if val := args.Get(0); val != nil {
		group = val.(models.StudyGroup)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroups(ctx context.Context) ([]models.StudyGroup, error) {
	args := m.Called(ctx)
	var groups []models.StudyGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.StudyGroup)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.StudyGroup, error) {
	args := m.Called(ctx, userID)
	var groups []models.StudyGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.StudyGroup)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) ListSuggestedGroups(ctx context.Context, interests []string, excludeUserID int) ([]models.StudyGroup, error) {
	args := m.Called(ctx, interests, excludeUserID)
	var groups []models.StudyGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.StudyGroup)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) UpdateGroup(ctx context.Context, group models.StudyGroup) (models.StudyGroup, error) {
	args := m.Called(ctx, group)
	var saved models.StudyGroup
	if val := args.Get(0); val != nil {
		saved = val.(models.StudyGroup)
	}
	return saved, args.Error(1)
}

func (m *GroupRepositoryMock) DeleteGroup(ctx context.Context, groupID int) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RequestMembership(ctx context.Context, groupID, userID int) (models.GroupMembership, error) {
	args := m.Called(ctx, groupID, userID)
	var membership models.GroupMembership
	if val := args.Get(0); val != nil {
		membership = val.(models.GroupMembership)
	}
	return membership, args.Error(1)
}

func (m *GroupRepositoryMock) AcceptMembership(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMembership(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) ListMemberships(ctx context.Context, groupID int) ([]models.GroupMembership, error) {
	args := m.Called(ctx, groupID)
	var memberships []models.GroupMembership
	if val := args.Get(0); val != nil {
		memberships = val.([]models.GroupMembership)
	}
	return memberships, args.Error(1)
}

func (m *GroupRepositoryMock) IsAcceptedMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) Create(ctx context.Context, groupID, senderID int, content string) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, content)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListForGroup(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.GroupMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.GroupMessage)
	}
	return msgs, args.Error(1)
}

type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) ValidateToken(token string) (int, error) {
	args := m.Called(token)
	return args.Int(0), args.Error(1)
}

var (
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
	_ repositories.ProfileRepository      = (*ProfileRepositoryMock)(nil)
	_ repositories.MatchRequestRepository = (*MatchRequestRepositoryMock)(nil)
	_ repositories.MatchMessageRepository = (*MatchMessageRepositoryMock)(nil)
	_ repositories.ScoreRepository        = (*ScoreRepositoryMock)(nil)
	_ repositories.GroupRepository        = (*GroupRepositoryMock)(nil)
	_ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)
)

package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-service/internal/mocks"
	"campus-service/internal/models"
	"campus-service/internal/repositories"
)

func newTestRegistry() (*Registry, *mocks.MatchRequestRepositoryMock, *mocks.MatchMessageRepositoryMock, *mocks.UserRepositoryMock) {
	requests := new(mocks.MatchRequestRepositoryMock)
	messages := new(mocks.MatchMessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	return NewRegistry(requests, messages, users), requests, messages, users
}

func TestCreateRequestSuccess(t *testing.T) {
	registry, requests, _, users := newTestRegistry()

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	requests.On("Create", mock.Anything, 1, 2, "hello").Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	req, err := registry.CreateRequest(context.Background(), 1, 2, "hello")
	require.NoError(t, err)
	require.Equal(t, 7, req.ID)
	requests.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestCreateRequestDefaultMessage(t *testing.T) {
	registry, requests, _, users := newTestRegistry()

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	requests.On("Create", mock.Anything, 1, 2, "I would like to connect as potential roommates!").Return(models.MatchRequest{ID: 8}, nil).Once()

	_, err := registry.CreateRequest(context.Background(), 1, 2, "")
	require.NoError(t, err)
	requests.AssertExpectations(t)
}

func TestCreateRequestToSelf(t *testing.T) {
	registry, _, _, _ := newTestRegistry()

	_, err := registry.CreateRequest(context.Background(), 1, 1, "hi")
	require.ErrorIs(t, err, ErrSelfRequest)
}

func TestCreateRequestUnknownReceiver(t *testing.T) {
	registry, _, _, users := newTestRegistry()

	users.On("UserExists", mock.Anything, 99).Return(false, nil).Once()

	_, err := registry.CreateRequest(context.Background(), 1, 99, "hi")
	require.ErrorIs(t, err, ErrInvalidReceiver)
}

func TestCreateRequestDuplicatePair(t *testing.T) {
	registry, requests, _, users := newTestRegistry()

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	requests.On("Create", mock.Anything, 1, 2, "hi").Return(models.MatchRequest{}, repositories.ErrDuplicateRequest).Once()

	_, err := registry.CreateRequest(context.Background(), 1, 2, "hi")
	require.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestAcceptSuccess(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("TransitionStatus", mock.Anything, 7, 2, models.MatchStatusAccepted).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()

	req, err := registry.Accept(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusAccepted, req.Status)
	requests.AssertExpectations(t)
}

func TestAcceptBySenderForbidden(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("TransitionStatus", mock.Anything, 7, 1, models.MatchStatusAccepted).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()
	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	_, err := registry.Accept(context.Background(), 7, 1)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptTwiceInvalidState(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("TransitionStatus", mock.Anything, 7, 2, models.MatchStatusAccepted).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()
	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()

	_, err := registry.Accept(context.Background(), 7, 2)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectMissingRequest(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("TransitionStatus", mock.Anything, 42, 2, models.MatchStatusRejected).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()
	requests.On("GetByID", mock.Anything, 42).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()

	_, err := registry.Reject(context.Background(), 42, 2)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestPostMessageSuccess(t *testing.T) {
	registry, requests, messages, _ := newTestRegistry()

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()
	messages.On("Create", mock.Anything, 7, 1, "hey").
		Return(models.MatchMessage{ID: 3, MatchRequestID: 7, SenderID: 1, Content: "hey"}, nil).Once()
	requests.On("TouchLastMessage", mock.Anything, 7).Return(nil).Once()

	msg, err := registry.PostMessage(context.Background(), 7, 1, "hey")
	require.NoError(t, err)
	require.Equal(t, "hey", msg.Content)
	requests.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestPostMessageOnPendingRequest(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	_, err := registry.PostMessage(context.Background(), 7, 1, "hey")
	require.ErrorIs(t, err, ErrNotAcceptable)
}

func TestPostMessageByOutsider(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()

	_, err := registry.PostMessage(context.Background(), 7, 3, "hey")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetThreadMarksRead(t *testing.T) {
	registry, requests, messages, _ := newTestRegistry()

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()
	messages.On("MarkReadForRecipient", mock.Anything, 7, 2).Return(nil).Once()
	messages.On("ListForRequest", mock.Anything, 7).
		Return([]models.MatchMessage{{ID: 1, SenderID: 1, Content: "hi"}}, nil).Once()

	msgs, err := registry.GetThread(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	messages.AssertExpectations(t)
}

func TestGetThreadByOutsider(t *testing.T) {
	registry, requests, _, _ := newTestRegistry()

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()

	_, err := registry.GetThread(context.Background(), 7, 9)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRequestPropagatesLookupError(t *testing.T) {
	registry, _, _, users := newTestRegistry()

	boom := errors.New("db down")
	users.On("UserExists", mock.Anything, 2).Return(false, boom).Once()

	_, err := registry.CreateRequest(context.Background(), 1, 2, "hi")
	require.ErrorIs(t, err, boom)
}

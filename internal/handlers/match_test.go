package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-service/internal/matching"
	"campus-service/internal/mocks"
	"campus-service/internal/models"
	"campus-service/internal/repositories"
	"campus-service/internal/ws"
)

func setupMatchRouter(requests *mocks.MatchRequestRepositoryMock, messages *mocks.MatchMessageRepositoryMock, users *mocks.UserRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	registry := matching.NewRegistry(requests, messages, users)
	handler := NewMatchHandler(registry, ws.NewHub(), nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/match-requests", handler.CreateRequest)
	r.GET("/match-requests", handler.ListRequests)
	r.POST("/match-requests/:request_id/accept", handler.AcceptRequest)
	r.POST("/match-requests/:request_id/reject", handler.RejectRequest)
	r.GET("/match-requests/:request_id/messages", handler.GetMessages)
	r.POST("/match-requests/:request_id/messages", handler.PostMessage)
	return r
}

func TestCreateMatchRequestSuccess(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), users)

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	requests.On("Create", mock.Anything, 1, 2, "hi").
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests", bytes.NewBufferString(`{"receiver_id":2,"message":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	requests.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestCreateMatchRequestMissingReceiver(t *testing.T) {
	router := setupMatchRouter(new(mocks.MatchRequestRepositoryMock), new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/match-requests", bytes.NewBufferString(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMatchRequestDuplicateConflict(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), users)

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	requests.On("Create", mock.Anything, 1, 2, "hi").
		Return(models.MatchRequest{}, repositories.ErrDuplicateRequest).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests", bytes.NewBufferString(`{"receiver_id":2,"message":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateMatchRequestUnknownReceiver(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupMatchRouter(new(mocks.MatchRequestRepositoryMock), new(mocks.MatchMessageRepositoryMock), users)

	users.On("UserExists", mock.Anything, 99).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests", bytes.NewBufferString(`{"receiver_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptMatchRequestSuccess(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	requests.On("TransitionStatus", mock.Anything, 7, 1, models.MatchStatusAccepted).
		Return(models.MatchRequest{ID: 7, SenderID: 2, ReceiverID: 1, Status: models.MatchStatusAccepted}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests/7/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	requests.AssertExpectations(t)
}

func TestAcceptMatchRequestAsSenderForbidden(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	requests.On("TransitionStatus", mock.Anything, 7, 1, models.MatchStatusAccepted).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()
	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests/7/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRejectMatchRequestAlreadyResolvedConflict(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	requests.On("TransitionStatus", mock.Anything, 7, 1, models.MatchStatusRejected).
		Return(models.MatchRequest{}, repositories.ErrRequestNotFound).Once()
	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 2, ReceiverID: 1, Status: models.MatchStatusAccepted}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests/7/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAcceptMatchRequestInvalidID(t *testing.T) {
	router := setupMatchRouter(new(mocks.MatchRequestRepositoryMock), new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/match-requests/abc/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMatchMessagesMarksRead(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	messages := new(mocks.MatchMessageRepositoryMock)
	router := setupMatchRouter(requests, messages, new(mocks.UserRepositoryMock))

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 2, ReceiverID: 1, Status: models.MatchStatusAccepted}, nil).Once()
	messages.On("MarkReadForRecipient", mock.Anything, 7, 1).Return(nil).Once()
	messages.On("ListForRequest", mock.Anything, 7).
		Return([]models.MatchMessage{{ID: 1, MatchRequestID: 7, SenderID: 2, Content: "hey"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/match-requests/7/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messages.AssertExpectations(t)
}

func TestPostMatchMessageOnPendingConflict(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	router := setupMatchRouter(requests, new(mocks.MatchMessageRepositoryMock), new(mocks.UserRepositoryMock))

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests/7/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostMatchMessageSuccess(t *testing.T) {
	requests := new(mocks.MatchRequestRepositoryMock)
	messages := new(mocks.MatchMessageRepositoryMock)
	router := setupMatchRouter(requests, messages, new(mocks.UserRepositoryMock))

	requests.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: models.MatchStatusAccepted}, nil).Once()
	messages.On("Create", mock.Anything, 7, 1, "hey").
		Return(models.MatchMessage{ID: 3, MatchRequestID: 7, SenderID: 1, Content: "hey"}, nil).Once()
	requests.On("TouchLastMessage", mock.Anything, 7).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/match-requests/7/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	requests.AssertExpectations(t)
	messages.AssertExpectations(t)
}

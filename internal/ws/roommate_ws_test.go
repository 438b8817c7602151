package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-service/internal/mocks"
	"campus-service/internal/models"
)

// threadPosterStub records the context its calls arrive with, so tests can
// verify the read loop is not running on a canceled request context.
type threadPosterStub struct {
	mu     sync.Mutex
	ctxErr error
	calls  int
	failOn string
}

func (p *threadPosterStub) PostMessage(ctx context.Context, requestID, actorID int, content string) (models.MatchMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.ctxErr = ctx.Err()
	if p.failOn != "" && content == p.failOn {
		return models.MatchMessage{}, errors.New("insert failed")
	}
	return models.MatchMessage{ID: p.calls, MatchRequestID: requestID, SenderID: actorID, Content: content}, nil
}

func (p *threadPosterStub) lastCtxErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctxErr
}

func (p *threadPosterStub) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newRoommateServer(t *testing.T, poster *threadPosterStub, status string) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	matches := new(mocks.MatchRequestRepositoryMock)
	matches.On("GetByID", mock.Anything, 7).
		Return(models.MatchRequest{ID: 7, SenderID: 1, ReceiverID: 2, Status: status}, nil)

	validator := new(mocks.TokenValidatorMock)
	validator.On("ValidateToken", "alice").Return(1, nil)
	validator.On("ValidateToken", "bob").Return(2, nil)
	validator.On("ValidateToken", "mallory").Return(3, nil)

	hub := NewHub()
	handler := NewRoommateChatHandler(hub, NewGate(matches, new(mocks.GroupRepositoryMock)), poster, validator)

	router := gin.New()
	router.GET("/ws/roommate-chat/:match_id", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func dialWS(t *testing.T, server *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readRoommateEvent(t *testing.T, conn *websocket.Conn) models.RoommateEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.RoommateEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

// expectNoFrame must be the last read on the connection: the deadline
// error leaves the websocket unusable.
func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func waitForRoomSize(t *testing.T, hub *Hub, key RoomKey, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.RoomSize(key) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room size never reached %d, got %d", want, hub.RoomSize(key))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRoommateChatPersistsAndEchoesToBothSides(t *testing.T) {
	poster := &threadPosterStub{}
	server, hub := newRoommateServer(t, poster, models.MatchStatusAccepted)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	alice := dialWS(t, server, "/ws/roommate-chat/7", "alice")
	bob := dialWS(t, server, "/ws/roommate-chat/7", "bob")
	waitForRoomSize(t, hub, key, 2)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "chat_message", "message": "hi"}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readRoommateEvent(t, conn)
		require.Equal(t, "chat_message", event.Type)
		require.Equal(t, "hi", event.Message)
		require.Equal(t, 1, event.SenderID)
	}

	require.Equal(t, 1, poster.callCount())
	require.NoError(t, poster.lastCtxErr())
}

func TestRoommateChatTypingExcludesSender(t *testing.T) {
	poster := &threadPosterStub{}
	server, hub := newRoommateServer(t, poster, models.MatchStatusAccepted)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	alice := dialWS(t, server, "/ws/roommate-chat/7", "alice")
	bob := dialWS(t, server, "/ws/roommate-chat/7", "bob")
	waitForRoomSize(t, hub, key, 2)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "typing"}))

	event := readRoommateEvent(t, bob)
	require.Equal(t, "typing_indicator", event.Type)
	require.Zero(t, poster.callCount())
	expectNoFrame(t, alice)
}

func TestRoommateChatPersistFailureDropsFrame(t *testing.T) {
	poster := &threadPosterStub{failOn: "doomed"}
	server, hub := newRoommateServer(t, poster, models.MatchStatusAccepted)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	alice := dialWS(t, server, "/ws/roommate-chat/7", "alice")
	bob := dialWS(t, server, "/ws/roommate-chat/7", "bob")
	waitForRoomSize(t, hub, key, 2)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "chat_message", "message": "doomed"}))
	expectNoFrame(t, bob)
	require.Equal(t, 1, poster.callCount())

	// The connection survives the dropped frame.
	waitForRoomSize(t, hub, key, 2)
}

func TestRoommateChatPendingRequestRejectedBeforeJoin(t *testing.T) {
	poster := &threadPosterStub{}
	server, hub := newRoommateServer(t, poster, models.MatchStatusPending)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/roommate-chat/7?token=alice"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	if resp != nil {
		resp.Body.Close()
	}
	require.Zero(t, hub.RoomSize(key))
}

func TestRoommateChatOutsiderRejectedBeforeJoin(t *testing.T) {
	poster := &threadPosterStub{}
	server, hub := newRoommateServer(t, poster, models.MatchStatusAccepted)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/roommate-chat/7?token=mallory"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.Zero(t, hub.RoomSize(key))
}

func TestRoommateChatDisconnectLeavesRoom(t *testing.T) {
	poster := &threadPosterStub{}
	server, hub := newRoommateServer(t, poster, models.MatchStatusAccepted)
	key := RoomKey{Kind: RoomRoommate, EntityID: 7}

	alice := dialWS(t, server, "/ws/roommate-chat/7", "alice")
	bob := dialWS(t, server, "/ws/roommate-chat/7", "bob")
	waitForRoomSize(t, hub, key, 2)

	require.NoError(t, alice.Close())
	waitForRoomSize(t, hub, key, 1)

	// Fan-out still reaches the remaining member.
	require.NoError(t, bob.WriteJSON(map[string]string{"type": "chat_message", "message": "still here"}))
	event := readRoommateEvent(t, bob)
	require.Equal(t, "chat_message", event.Type)
	require.Equal(t, 2, event.SenderID)
}

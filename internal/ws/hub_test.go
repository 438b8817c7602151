package ws

import (
	"sync"
	"testing"
	"time"
)

// fakeConn captures written frames and signals each delivery.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	delivery chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{delivery: make(chan struct{}, 64)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	c.frames = append(c.frames, data)
	c.mu.Unlock()
	c.delivery <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) waitForFrame(t *testing.T) {
	t.Helper()
	select {
	case <-c.delivery:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
	}
}

func TestHubJoinAndBroadcast(t *testing.T) {
	hub := NewHub()
	key := RoomKey{Kind: RoomRoommate, EntityID: 1}

	connA := newFakeConn()
	connB := newFakeConn()
	sessionA := hub.Register(connA, ConnInfo{ConnID: "a", Kind: RoomRoommate, UserID: 1})
	sessionB := hub.Register(connB, ConnInfo{ConnID: "b", Kind: RoomRoommate, UserID: 2})
	hub.Join(sessionA, key)
	hub.Join(sessionB, key)

	if hub.RoomSize(key) != 2 {
		t.Fatalf("expected 2 members, got %d", hub.RoomSize(key))
	}

	hub.Broadcast(key, []byte("hello"), nil)
	connA.waitForFrame(t)
	connB.waitForFrame(t)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	key := RoomKey{Kind: RoomStudyGroup, EntityID: 5}

	conn := newFakeConn()
	session := hub.Register(conn, ConnInfo{ConnID: "a", Kind: RoomStudyGroup, UserID: 1})
	hub.Join(session, key)
	hub.Join(session, key)

	if hub.RoomSize(key) != 1 {
		t.Fatalf("expected 1 member, got %d", hub.RoomSize(key))
	}

	hub.Broadcast(key, []byte("once"), nil)
	conn.waitForFrame(t)

	// A second frame would indicate a double join.
	select {
	case <-conn.delivery:
		t.Fatalf("received duplicate frame after double join")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastExcludesSession(t *testing.T) {
	hub := NewHub()
	key := RoomKey{Kind: RoomRoommate, EntityID: 1}

	connA := newFakeConn()
	connB := newFakeConn()
	sessionA := hub.Register(connA, ConnInfo{ConnID: "a", Kind: RoomRoommate, UserID: 1})
	sessionB := hub.Register(connB, ConnInfo{ConnID: "b", Kind: RoomRoommate, UserID: 2})
	hub.Join(sessionA, key)
	hub.Join(sessionB, key)

	hub.Broadcast(key, []byte("typing"), sessionA)
	connB.waitForFrame(t)

	select {
	case <-connA.delivery:
		t.Fatalf("excluded session received the frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	roomA := RoomKey{Kind: RoomRoommate, EntityID: 1}
	roomB := RoomKey{Kind: RoomStudyGroup, EntityID: 2}

	conn := newFakeConn()
	session := hub.Register(conn, ConnInfo{ConnID: "a", UserID: 1})
	hub.Join(session, roomA)
	hub.Join(session, roomB)

	hub.Unregister(session)

	if hub.RoomSize(roomA) != 0 || hub.RoomSize(roomB) != 0 {
		t.Fatalf("expected empty rooms after unregister")
	}

	hub.Broadcast(roomA, []byte("gone"), nil)
	hub.Broadcast(roomB, []byte("gone"), nil)
	select {
	case <-conn.delivery:
		t.Fatalf("unregistered session received a frame")
	case <-time.After(50 * time.Millisecond):
	}

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Fatalf("expected connection to be closed")
	}

	// Second unregister is a no-op.
	hub.Unregister(session)
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	key := RoomKey{Kind: RoomRoommate, EntityID: 1}

	// A connection whose writer never drains: block WriteMessage forever.
	conn := newFakeConn()
	conn.delivery = make(chan struct{})

	session := hub.Register(conn, ConnInfo{ConnID: "slow", UserID: 1})
	hub.Join(session, key)

	// One frame is in flight in the writer plus sendBuffer queued; the
	// next enqueue overflows and evicts the session.
	for i := 0; i <= sendBuffer+1; i++ {
		hub.Broadcast(key, []byte("flood"), nil)
	}

	deadline := time.After(time.Second)
	for hub.RoomSize(key) != 0 {
		select {
		case <-deadline:
			t.Fatalf("slow consumer was not dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

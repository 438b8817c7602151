package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"campus-service/internal/observability"
)

// RoomKind discriminates the two chat surfaces.
type RoomKind string

const (
	RoomRoommate   RoomKind = "roommate"
	RoomStudyGroup RoomKind = "group"
)

// RoomKey identifies one live chat room: a roommate thread or a study group.
type RoomKey struct {
	Kind     RoomKind
	EntityID int
}

// Conn is the write side of a websocket connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// sendBuffer bounds how far a consumer may fall behind before it is dropped.
const sendBuffer = 32

// Session is one live connection. Outbound frames go through a buffered
// channel drained by a dedicated writer goroutine, so a slow consumer
// never blocks fan-out to its peers.
type Session struct {
	conn Conn
	info ConnInfo
	hub  *Hub

	send chan []byte
	done chan struct{}
	once sync.Once
}

// Info returns the connection metadata captured at handshake time.
func (s *Session) Info() ConnInfo {
	return s.info
}

// close stops the writer and closes the transport. Idempotent.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) enqueue(payload []byte) {
	select {
	case <-s.done:
	case s.send <- payload:
	default:
		// Full buffer means the consumer stopped draining; drop it.
		log.Printf("dropping slow websocket consumer conn_id=%s user_id=%d", s.info.ConnID, s.info.UserID)
		s.hub.Unregister(s)
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				observability.IncWSEvent(string(s.info.Kind), "ws_error")
				s.hub.Unregister(s)
				return
			}
		}
	}
}

// Hub is the in-process room registry: it maps room keys to the sessions
// currently joined. Join/leave and fan-out snapshotting are mutually
// exclusive per hub, so a joining session either sees a whole broadcast
// or none of it.
type Hub struct {
	mu           sync.RWMutex
	rooms        map[RoomKey]map[*Session]bool
	sessionRooms map[*Session]map[RoomKey]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:        make(map[RoomKey]map[*Session]bool),
		sessionRooms: make(map[*Session]map[RoomKey]bool),
	}
}

// Register wraps a connection in a Session and starts its writer.
func (h *Hub) Register(conn Conn, info ConnInfo) *Session {
	s := &Session{
		conn: conn,
		info: info,
		hub:  h,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go s.writePump()
	return s
}

// Join adds the session to a room. Joining the same room twice is a no-op.
func (h *Hub) Join(s *Session, key RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*Session]bool)
	}
	h.rooms[key][s] = true
	if _, ok := h.sessionRooms[s]; !ok {
		h.sessionRooms[s] = make(map[RoomKey]bool)
	}
	h.sessionRooms[s][key] = true
}

// Unregister removes the session from every room it joined and stops its
// writer. Safe to call more than once and from any goroutine.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	for key := range h.sessionRooms[s] {
		if members, ok := h.rooms[key]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, key)
			}
		}
	}
	delete(h.sessionRooms, s)
	h.mu.Unlock()

	s.close()
}

// Broadcast delivers the payload to every member of the room except
// exclude (pass nil to reach everyone). Frames enqueued from a single
// goroutine arrive at each recipient in enqueue order.
func (h *Hub) Broadcast(key RoomKey, payload []byte, exclude *Session) {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[key]))
	for s := range h.rooms[key] {
		if s != exclude {
			members = append(members, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range members {
		s.enqueue(payload)
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(key RoomKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

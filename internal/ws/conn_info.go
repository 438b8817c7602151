package ws

import "time"

// ConnInfo captures handshake metadata for one connection.
type ConnInfo struct {
	ConnID      string
	Kind        RoomKind
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

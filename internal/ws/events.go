package ws

import (
	"context"
	"time"

	"campus-service/internal/observability"
)

func wsRoutingKey(kind RoomKind) string {
	if kind == RoomStudyGroup {
		return "ws_events.groups"
	}
	return "ws_events.roommates"
}

// publishWSEvent emits a connection lifecycle event to the event bus.
// Publishing is best-effort; failures only bump the error counter.
func publishWSEvent(ctx context.Context, key RoomKey, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(string(key.Kind), event)

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        string(key.Kind),
			"resource_id": key.EntityID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsRoutingKey(key.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

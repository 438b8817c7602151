package ws

import (
	"context"

	"campus-service/internal/models"
	"campus-service/internal/repositories"
)

// Gate decides whether a principal may join a room, from persisted state
// only. It has no side effects and fails closed: any lookup error or
// unknown room kind denies access.
type Gate struct {
	matches repositories.MatchRequestRepository
	groups  repositories.GroupRepository
}

// NewGate constructs a Gate.
func NewGate(matches repositories.MatchRequestRepository, groups repositories.GroupRepository) *Gate {
	return &Gate{matches: matches, groups: groups}
}

// Authorize reports whether the principal may join the room.
//
// Roommate rooms require an accepted match request with the principal as
// sender or receiver. Study-group rooms require an accepted membership.
// An unauthenticated principal is always rejected.
func (g *Gate) Authorize(ctx context.Context, principalID int, key RoomKey) bool {
	if principalID <= 0 {
		return false
	}

	switch key.Kind {
	case RoomRoommate:
		req, err := g.matches.GetByID(ctx, key.EntityID)
		if err != nil {
			return false
		}
		return req.Status == models.MatchStatusAccepted && req.Involves(principalID)
	case RoomStudyGroup:
		member, err := g.groups.IsAcceptedMember(ctx, key.EntityID, principalID)
		return err == nil && member
	default:
		return false
	}
}

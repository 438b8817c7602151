package matching

import (
	"context"
	"errors"

	"campus-service/internal/models"
	"campus-service/internal/repositories"
)

var (
	ErrInvalidReceiver  = errors.New("receiver does not exist")
	ErrSelfRequest      = errors.New("cannot send a match request to yourself")
	ErrDuplicateRequest = errors.New("a match request already exists between these users")
	ErrForbidden        = errors.New("actor is not allowed to act on this request")
	ErrInvalidState     = errors.New("request is not in a state that allows this transition")
	ErrNotAcceptable    = errors.New("messages are only allowed on accepted requests")
	ErrRequestNotFound  = errors.New("match request not found")
)

// Registry owns the match request lifecycle and its message threads.
type Registry struct {
	requests repositories.MatchRequestRepository
	messages repositories.MatchMessageRepository
	users    repositories.UserRepository
}

// NewRegistry constructs a Registry.
func NewRegistry(requests repositories.MatchRequestRepository, messages repositories.MatchMessageRepository, users repositories.UserRepository) *Registry {
	return &Registry{requests: requests, messages: messages, users: users}
}

// CreateRequest opens a pending request from sender to receiver. A prior
// request between the pair blocks a new one regardless of its status.
func (r *Registry) CreateRequest(ctx context.Context, senderID, receiverID int, message string) (models.MatchRequest, error) {
	if senderID == receiverID {
		return models.MatchRequest{}, ErrSelfRequest
	}
	exists, err := r.users.UserExists(ctx, receiverID)
	if err != nil {
		return models.MatchRequest{}, err
	}
	if !exists {
		return models.MatchRequest{}, ErrInvalidReceiver
	}
	if message == "" {
		message = "I would like to connect as potential roommates!"
	}

	req, err := r.requests.Create(ctx, senderID, receiverID, message)
	if errors.Is(err, repositories.ErrDuplicateRequest) {
		return models.MatchRequest{}, ErrDuplicateRequest
	}
	return req, err
}

// Accept transitions a pending request to accepted. Only the receiver may
// accept.
func (r *Registry) Accept(ctx context.Context, requestID, actorID int) (models.MatchRequest, error) {
	return r.transition(ctx, requestID, actorID, models.MatchStatusAccepted)
}

// Reject transitions a pending request to rejected. Only the receiver may
// reject.
func (r *Registry) Reject(ctx context.Context, requestID, actorID int) (models.MatchRequest, error) {
	return r.transition(ctx, requestID, actorID, models.MatchStatusRejected)
}

func (r *Registry) transition(ctx context.Context, requestID, actorID int, status string) (models.MatchRequest, error) {
	req, err := r.requests.TransitionStatus(ctx, requestID, actorID, status)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, repositories.ErrRequestNotFound) {
		return models.MatchRequest{}, err
	}

	// The guarded update matched nothing; inspect the row to report why.
	current, err := r.requests.GetByID(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return models.MatchRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.MatchRequest{}, err
	}
	if current.ReceiverID != actorID {
		return models.MatchRequest{}, ErrForbidden
	}
	return models.MatchRequest{}, ErrInvalidState
}

// ListForUser returns all requests the user is a party to, newest first.
func (r *Registry) ListForUser(ctx context.Context, userID int) ([]models.MatchRequest, error) {
	return r.requests.ListForUser(ctx, userID)
}

// GetRequest returns a request the actor is a party to.
func (r *Registry) GetRequest(ctx context.Context, requestID, actorID int) (models.MatchRequest, error) {
	req, err := r.requests.GetByID(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return models.MatchRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.MatchRequest{}, err
	}
	if !req.Involves(actorID) {
		return models.MatchRequest{}, ErrForbidden
	}
	return req, nil
}

// PostMessage appends a message to an accepted request's thread and bumps
// last_message_at.
func (r *Registry) PostMessage(ctx context.Context, requestID, actorID int, content string) (models.MatchMessage, error) {
	req, err := r.requests.GetByID(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return models.MatchMessage{}, ErrRequestNotFound
	}
	if err != nil {
		return models.MatchMessage{}, err
	}
	if !req.Involves(actorID) {
		return models.MatchMessage{}, ErrForbidden
	}
	if req.Status != models.MatchStatusAccepted {
		return models.MatchMessage{}, ErrNotAcceptable
	}

	msg, err := r.messages.Create(ctx, requestID, actorID, content)
	if err != nil {
		return models.MatchMessage{}, err
	}
	if err := r.requests.TouchLastMessage(ctx, requestID); err != nil {
		return models.MatchMessage{}, err
	}
	return msg, nil
}

// GetThread returns the request's messages ascending and marks the
// actor's received messages as read. Re-reading is idempotent.
func (r *Registry) GetThread(ctx context.Context, requestID, actorID int) ([]models.MatchMessage, error) {
	req, err := r.requests.GetByID(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if !req.Involves(actorID) {
		return nil, ErrForbidden
	}

	if err := r.messages.MarkReadForRecipient(ctx, requestID, actorID); err != nil {
		return nil, err
	}
	return r.messages.ListForRequest(ctx, requestID)
}

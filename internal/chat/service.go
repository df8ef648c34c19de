package chat

import (
	"context"
	"errors"
)

var ErrInvalidUser = errors.New("invalid user id")

// Service exposes the chat channel read surface. Message send/receive is
// handled by the messaging collaborator, not here.
type Service interface {
	ListChannels(ctx context.Context, userID int64) ([]*Channel, error)
	GetChannelForPair(ctx context.Context, userID, otherID int64) (*Channel, error)
}

type service struct {
	repo Repository
}

// NewService creates a chat service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListChannels(ctx context.Context, userID int64) ([]*Channel, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) GetChannelForPair(ctx context.Context, userID, otherID int64) (*Channel, error) {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return nil, ErrInvalidUser
	}
	return s.repo.GetByPair(ctx, userID, otherID)
}

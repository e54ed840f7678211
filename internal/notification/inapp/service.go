package inapp

import (
	"context"

	"inspection_portal_backend/internal/notification/sse"
	"inspection_portal_backend/platform/logger"
)

// Pusher delivers live events to connected users.
type Pusher interface {
	Publish(userID string, event sse.Event)
}

type Service struct {
	repo *Repository
	sse  Pusher
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// SetSSE injects the live push channel.
func (s *Service) SetSSE(p Pusher) {
	s.sse = p
}

// Notify persists the notification and pushes it via SSE if the user is online.
func (s *Service) Notify(ctx context.Context, n Notification) (Notification, error) {
	saved, err := s.repo.Create(ctx, n)
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", n.UserID)
		return Notification{}, err
	}

	if s.sse != nil {
		s.sse.Publish(saved.UserID, sse.Event{
			Type:    sse.EventNotification,
			Message: saved.Title,
			Data:    saved,
		})
	}
	return saved, nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return s.repo.List(ctx, userID, unreadOnly)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

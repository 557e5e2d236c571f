package service

import (
	"context"
	"errors"
	"time"

	"cleanhub/internal/ids"
	"cleanhub/internal/models"
	"cleanhub/internal/repository"
)

const notificationListLimit = 50

type NotificationService struct {
	notifications NotificationStore
	now           func() time.Time
}

func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications, now: time.Now}
}

// Notify stores a new inbox entry for userID.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, title, body string) (models.Notification, error) {
	n := models.Notification{
		ID:        ids.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, notificationListLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	err := s.notifications.MarkRead(ctx, userID, id, s.now().UTC())
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return notFound("notification not found")
	}
	return err
}

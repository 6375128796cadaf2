// Package notifications lists and acknowledges user-facing messages.
package notifications

import (
	"context"

	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// Service reads the notification feed.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// List returns the user's notifications newest first.
func (s *Service) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	return s.store.ListUserNotifications(ctx, userID)
}

// MarkRead acknowledges a notification.
func (s *Service) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	return s.store.MarkNotificationRead(ctx, id)
}

// Package onboarding completes KYC for the demo user.
package onboarding

import (
	"context"
	"fmt"

	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/domain/user"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// Service manages onboarding state.
type Service struct {
	users         storage.UserStore
	notifications storage.NotificationStore
	log           *logger.Logger
}

// New constructs an onboarding service.
func New(users storage.UserStore, notifications storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("onboarding")
	}
	return &Service{users: users, notifications: notifications, log: log}
}

// Status summarises a user's onboarding progress.
type Status struct {
	UserID        string         `json:"userId"`
	WalletAddress string         `json:"walletAddress"`
	KYCStatus     user.KYCStatus `json:"kycStatus"`
	IsComplete    bool           `json:"isComplete"`
}

// Complete sets the user's KYC status and posts the welcome notification. An
// empty status defaults to verified (the demo KYC provider always passes).
func (s *Service) Complete(ctx context.Context, userID string, status user.KYCStatus) (user.User, error) {
	if status == "" {
		status = user.KYCVerified
	}
	if status != user.KYCVerified && status != user.KYCUnverified {
		return user.User{}, fmt.Errorf("unknown kyc status %q", status)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	u.KYCStatus = status
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}

	if _, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Title:   "Welcome to ParaCipher!",
		Message: "You're all set. Now purchase coverage for your next shift.",
		Type:    notification.TypeSuccess,
	}); err != nil {
		return user.User{}, err
	}

	s.log.Infof("onboarding completed for %s (kyc=%s)", userID, status)
	return updated, nil
}

// GetStatus reports onboarding progress. Onboarding is complete once KYC is
// verified.
func (s *Service) GetStatus(ctx context.Context, userID string) (Status, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		UserID:        u.ID,
		WalletAddress: u.WalletAddress,
		KYCStatus:     u.KYCStatus,
		IsComplete:    u.KYCStatus == user.KYCVerified,
	}, nil
}

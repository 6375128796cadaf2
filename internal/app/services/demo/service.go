// Package demo provides the home-screen overview and the demo reset switch.
package demo

import (
	"context"

	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/domain/user"
	"github.com/paracipher/coverage_layer/internal/app/services/policies"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// LowBalanceThreshold triggers the funding alert on the home screen.
const LowBalanceThreshold = 100

// Service composes the home overview and resets demo state.
type Service struct {
	users    storage.UserStore
	policies *policies.Service
	resetter storage.Resetter
	ops      storage.OpLocker
	log      *logger.Logger
}

// New constructs a demo service.
func New(users storage.UserStore, policySvc *policies.Service, resetter storage.Resetter, ops storage.OpLocker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("demo")
	}
	return &Service{users: users, policies: policySvc, resetter: resetter, ops: ops, log: log}
}

// Alert is a home-screen advisory.
type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HomeView is the home-screen overview.
type HomeView struct {
	ShiftStatus  string         `json:"shiftStatus"`
	Balance      int64          `json:"balance"`
	ActivePolicy *policy.Policy `json:"activePolicy"`
	Alerts       []Alert        `json:"alerts"`
}

// Home builds the overview: shift status from active coverage, balance and
// any advisory alerts.
func (s *Service) Home(ctx context.Context, userID string) (HomeView, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return HomeView{}, err
	}

	view := HomeView{ShiftStatus: "inactive", Balance: u.Balance, Alerts: []Alert{}}

	active, ok, err := s.policies.ActivePolicy(ctx, userID)
	if err != nil {
		return HomeView{}, err
	}
	if ok {
		view.ShiftStatus = "active"
		view.ActivePolicy = &active
	}

	if u.Balance < LowBalanceThreshold {
		view.Alerts = append(view.Alerts, Alert{
			Type:    "warning",
			Message: "Low balance. Fund your wallet to purchase coverage.",
		})
	}

	return view, nil
}

// Reset wipes all demo state and returns the reseeded user. Safe to call at
// any time; runs under the operation lock so it cannot interleave with a
// purchase or claim.
func (s *Service) Reset(ctx context.Context) (user.User, error) {
	s.ops.LockOps()
	defer s.ops.UnlockOps()

	seed, err := s.resetter.Reset(ctx)
	if err != nil {
		return user.User{}, err
	}
	s.log.Warn("demo state reset")
	return seed, nil
}

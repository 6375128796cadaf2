// Package policies implements coverage purchase and the active-policy
// resolution rules.
package policies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/metrics"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

const (
	// HourlyPremiumRate is the fixed base premium per coverage hour.
	HourlyPremiumRate = 25

	// TierDiscountPercent is applied when the buyer's SBT score reaches
	// TierDiscountThreshold.
	TierDiscountPercent   = 20
	TierDiscountThreshold = 50
)

var (
	// ErrInsufficientBalance reports that the buyer cannot afford the premium.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidDuration reports a non-positive coverage duration.
	ErrInvalidDuration = errors.New("duration must be a positive number of hours")
)

// Service manages coverage policies.
type Service struct {
	users         storage.UserStore
	store         storage.PolicyStore
	ledger        storage.LedgerStore
	notifications storage.NotificationStore
	ops           storage.OpLocker
	clock         clockwork.Clock
	log           *logger.Logger
}

// New constructs a policy service.
func New(users storage.UserStore, store storage.PolicyStore, ledgerStore storage.LedgerStore, notifications storage.NotificationStore, ops storage.OpLocker, clock clockwork.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault("policies")
	}
	return &Service{
		users:         users,
		store:         store,
		ledger:        ledgerStore,
		notifications: notifications,
		ops:           ops,
		clock:         clock,
		log:           log,
	}
}

// PremiumBreakdown itemises how a premium was priced. DiscountRate is a
// percentage.
type PremiumBreakdown struct {
	BasePremium    int64 `json:"basePremium"`
	DiscountRate   int   `json:"discountRate"`
	DiscountAmount int64 `json:"discountAmount"`
	PremiumPaid    int64 `json:"premiumPaid"`
}

// Quote prices coverage for the given duration and SBT score. The discounted
// premium is truncated, never rounded.
func Quote(sbtScore, durationHours int) PremiumBreakdown {
	base := int64(HourlyPremiumRate) * int64(durationHours)
	rate := 0
	if sbtScore >= TierDiscountThreshold {
		rate = TierDiscountPercent
	}
	paid := base * int64(100-rate) / 100
	return PremiumBreakdown{
		BasePremium:    base,
		DiscountRate:   rate,
		DiscountAmount: base - paid,
		PremiumPaid:    paid,
	}
}

// PurchaseResult is the outcome of a successful purchase.
type PurchaseResult struct {
	Policy     policy.Policy    `json:"policy"`
	Breakdown  PremiumBreakdown `json:"premiumBreakdown"`
	NewBalance int64            `json:"newBalance"`
}

// Purchase buys instant coverage for a shift: it prices the premium, verifies
// the buyer's balance, creates the policy, debits the wallet and records the
// ledger and notification side effects. The sequence runs under the store's
// operation lock; there is no rollback between steps.
func (s *Service) Purchase(ctx context.Context, userID string, durationHours int) (PurchaseResult, error) {
	if durationHours <= 0 {
		return PurchaseResult{}, ErrInvalidDuration
	}

	s.ops.LockOps()
	defer s.ops.UnlockOps()

	buyer, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return PurchaseResult{}, err
	}

	breakdown := Quote(buyer.SBTScore, durationHours)
	if buyer.Balance < breakdown.PremiumPaid {
		return PurchaseResult{}, fmt.Errorf("balance %d below premium %d: %w", buyer.Balance, breakdown.PremiumPaid, ErrInsufficientBalance)
	}

	created, err := s.store.CreatePolicy(ctx, policy.Policy{
		UserID:        userID,
		DurationHours: durationHours,
		PremiumPaid:   breakdown.PremiumPaid,
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	newBalance, err := s.users.UpdateBalance(ctx, userID, -breakdown.PremiumPaid)
	if err != nil {
		return PurchaseResult{}, err
	}

	if _, err := s.ledger.CreateTransaction(ctx, ledger.Transaction{
		UserID:      userID,
		Type:        ledger.TypePremium,
		Amount:      breakdown.PremiumPaid,
		ReferenceID: created.ID,
	}); err != nil {
		return PurchaseResult{}, err
	}

	if _, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Title:   "Coverage purchased!",
		Message: fmt.Sprintf("You're covered for %dh. Policy ID: %s", durationHours, created.ID),
		Type:    notification.TypeSuccess,
	}); err != nil {
		return PurchaseResult{}, err
	}

	metrics.RecordPolicyPurchase(breakdown.PremiumPaid)
	s.log.WithField("policy_id", created.ID).Infof("policy purchased for %dh, premium %d", durationHours, breakdown.PremiumPaid)

	return PurchaseResult{Policy: created, Breakdown: breakdown, NewBalance: newBalance}, nil
}

// ActivePolicy resolves the user's current coverage: the first policy in
// insertion order that is flagged active and whose coverage window is still
// open. This read has a side effect: any active-flagged policy found past its
// coverage end is flagged expired in place (lazy expiry; there is no
// guarantee policies after the returned one have been reconciled).
func (s *Service) ActivePolicy(ctx context.Context, userID string) (policy.Policy, bool, error) {
	list, err := s.store.ListUserPolicies(ctx, userID)
	if err != nil {
		return policy.Policy{}, false, err
	}

	now := s.clock.Now()
	for _, p := range list {
		if p.Status != policy.StatusActive {
			continue
		}
		if !p.IsExpired(now) {
			return p, true, nil
		}
		p.Status = policy.StatusExpired
		if _, err := s.store.UpdatePolicy(ctx, p); err != nil {
			return policy.Policy{}, false, err
		}
		s.log.WithField("policy_id", p.ID).Debugf("policy expired on read")
	}
	return policy.Policy{}, false, nil
}

// Get retrieves a policy by identifier.
func (s *Service) Get(ctx context.Context, id string) (policy.Policy, error) {
	return s.store.GetPolicy(ctx, id)
}

// List returns the user's policies in purchase order.
func (s *Service) List(ctx context.Context, userID string) ([]policy.Policy, error) {
	return s.store.ListUserPolicies(ctx, userID)
}

// ReconcileExpired sweeps every policy and flags the time-expired active ones.
// It returns the number of policies transitioned. The lazy read-side contract
// of ActivePolicy holds with or without this sweep.
func (s *Service) ReconcileExpired(ctx context.Context) (int, error) {
	all, err := s.store.ListPolicies(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	expired := 0
	for _, p := range all {
		if p.Status != policy.StatusActive || !p.IsExpired(now) {
			continue
		}
		p.Status = policy.StatusExpired
		if _, err := s.store.UpdatePolicy(ctx, p); err != nil {
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		s.log.Infof("expired %d policies", expired)
	}
	return expired, nil
}

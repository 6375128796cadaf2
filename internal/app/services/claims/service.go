// Package claims implements claim intake with demo auto-approval.
package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/paracipher/coverage_layer/internal/app/domain/claim"
	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/metrics"
	"github.com/paracipher/coverage_layer/internal/app/services/policies"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// FixedPayoutAmount is paid on every simulated claim. A production system
// would price payouts from a severity model and route claims through a review
// queue; the demo keeps only the pending-to-paid transition reachable.
const FixedPayoutAmount = 5000

// ErrNoActivePolicy reports a claim attempted without covering coverage.
var ErrNoActivePolicy = errors.New("no active policy")

// Service manages claims against coverage policies.
type Service struct {
	users         storage.UserStore
	store         storage.ClaimStore
	ledger        storage.LedgerStore
	notifications storage.NotificationStore
	policies      *policies.Service
	ops           storage.OpLocker
	log           *logger.Logger
}

// New constructs a claim service.
func New(users storage.UserStore, store storage.ClaimStore, ledgerStore storage.LedgerStore, notifications storage.NotificationStore, policySvc *policies.Service, ops storage.OpLocker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("claims")
	}
	return &Service{
		users:         users,
		store:         store,
		ledger:        ledgerStore,
		notifications: notifications,
		policies:      policySvc,
		ops:           ops,
		log:           log,
	}
}

// SimulateResult is the outcome of a simulated claim.
type SimulateResult struct {
	Claim        claim.Claim `json:"claim"`
	PayoutAmount int64       `json:"payoutAmount"`
	NewBalance   int64       `json:"newBalance"`
}

// Simulate files a claim against the user's active policy and immediately
// auto-approves it with the fixed payout, crediting the wallet and recording
// the ledger and notification side effects. Runs under the store's operation
// lock; no rollback between steps.
func (s *Service) Simulate(ctx context.Context, userID, description string) (SimulateResult, error) {
	s.ops.LockOps()
	defer s.ops.UnlockOps()

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return SimulateResult{}, err
	}

	covering, ok, err := s.policies.ActivePolicy(ctx, userID)
	if err != nil {
		return SimulateResult{}, err
	}
	if !ok {
		return SimulateResult{}, fmt.Errorf("user %s: %w", userID, ErrNoActivePolicy)
	}

	created, err := s.store.CreateClaim(ctx, claim.Claim{
		PolicyID:    covering.ID,
		Description: description,
	})
	if err != nil {
		return SimulateResult{}, err
	}

	approved, err := s.store.ApproveClaim(ctx, created.ID, FixedPayoutAmount)
	if err != nil {
		return SimulateResult{}, err
	}

	newBalance, err := s.users.UpdateBalance(ctx, userID, FixedPayoutAmount)
	if err != nil {
		return SimulateResult{}, err
	}

	if _, err := s.ledger.CreateTransaction(ctx, ledger.Transaction{
		UserID:      userID,
		Type:        ledger.TypeClaim,
		Amount:      FixedPayoutAmount,
		ReferenceID: approved.ID,
	}); err != nil {
		return SimulateResult{}, err
	}

	if _, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Title:   "Claim approved!",
		Message: fmt.Sprintf("₹%d has been paid out. Check your wallet.", FixedPayoutAmount),
		Type:    notification.TypeSuccess,
	}); err != nil {
		return SimulateResult{}, err
	}

	metrics.RecordClaimPayout(FixedPayoutAmount)
	s.log.WithField("claim_id", approved.ID).Infof("claim auto-approved against policy %s", covering.ID)

	return SimulateResult{Claim: approved, PayoutAmount: FixedPayoutAmount, NewBalance: newBalance}, nil
}

// Get retrieves a claim by identifier.
func (s *Service) Get(ctx context.Context, id string) (claim.Claim, error) {
	return s.store.GetClaim(ctx, id)
}

// ListUserClaims returns every claim across all the user's policies.
func (s *Service) ListUserClaims(ctx context.Context, userID string) ([]claim.Claim, error) {
	userPolicies, err := s.policies.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := make([]claim.Claim, 0)
	for _, p := range userPolicies {
		list, err := s.store.ListPolicyClaims(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return all, nil
}

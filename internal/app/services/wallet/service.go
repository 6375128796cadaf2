// Package wallet exposes wallet info, balance and demo funding.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// Currency is the single implicit currency unit of the demo.
const Currency = "INR"

// ErrInvalidAmount reports a non-positive funding amount.
var ErrInvalidAmount = errors.New("amount must be positive")

// Service manages wallet views and funding.
type Service struct {
	users         storage.UserStore
	policies      storage.PolicyStore
	ledger        storage.LedgerStore
	notifications storage.NotificationStore
	ops           storage.OpLocker
	log           *logger.Logger
}

// New constructs a wallet service.
func New(users storage.UserStore, policyStore storage.PolicyStore, ledgerStore storage.LedgerStore, notifications storage.NotificationStore, ops storage.OpLocker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wallet")
	}
	return &Service{
		users:         users,
		policies:      policyStore,
		ledger:        ledgerStore,
		notifications: notifications,
		ops:           ops,
		log:           log,
	}
}

// Info is the wallet overview. Gasless is always true: the demo sponsors all
// on-chain fees.
type Info struct {
	WalletAddress  string   `json:"walletAddress"`
	Gasless        bool     `json:"gasless"`
	ActivePolicies []string `json:"activePolicies"`
}

// Balance reports the current spendable amount.
type Balance struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// FundResult describes a completed top-up.
type FundResult struct {
	PreviousBalance int64 `json:"previousBalance"`
	FundedAmount    int64 `json:"fundedAmount"`
	NewBalance      int64 `json:"newBalance"`
}

// GetInfo returns the wallet overview, listing ids of policies still flagged
// active.
func (s *Service) GetInfo(ctx context.Context, userID string) (Info, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Info{}, err
	}

	list, err := s.policies.ListUserPolicies(ctx, userID)
	if err != nil {
		return Info{}, err
	}

	active := make([]string, 0)
	for _, p := range list {
		if p.Status == policy.StatusActive {
			active = append(active, p.ID)
		}
	}

	return Info{WalletAddress: u.WalletAddress, Gasless: true, ActivePolicies: active}, nil
}

// GetBalance returns the current balance.
func (s *Service) GetBalance(ctx context.Context, userID string) (Balance, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Balance: u.Balance, Currency: Currency}, nil
}

// Fund credits the wallet and records the top-up side effects. Runs under the
// store's operation lock.
func (s *Service) Fund(ctx context.Context, userID string, amount int64) (FundResult, error) {
	if amount <= 0 {
		return FundResult{}, ErrInvalidAmount
	}

	s.ops.LockOps()
	defer s.ops.UnlockOps()

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return FundResult{}, err
	}

	newBalance, err := s.users.UpdateBalance(ctx, userID, amount)
	if err != nil {
		return FundResult{}, err
	}

	if _, err := s.ledger.CreateTransaction(ctx, ledger.Transaction{
		UserID: userID,
		Type:   ledger.TypeTopup,
		Amount: amount,
	}); err != nil {
		return FundResult{}, err
	}

	if _, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Title:   "Wallet funded!",
		Message: fmt.Sprintf("₹%d added to your wallet.", amount),
		Type:    notification.TypeSuccess,
	}); err != nil {
		return FundResult{}, err
	}

	s.log.Infof("wallet %s funded with %d", userID, amount)
	return FundResult{PreviousBalance: u.Balance, FundedAmount: amount, NewBalance: newBalance}, nil
}

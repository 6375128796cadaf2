package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
)

func TestService_GetInfo(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, store, store, nil)
	ctx := context.Background()

	active, err := store.CreatePolicy(ctx, policy.Policy{UserID: memory.SeedUserID, DurationHours: 2})
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}
	expired, err := store.CreatePolicy(ctx, policy.Policy{UserID: memory.SeedUserID, DurationHours: 2})
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}
	expired.Status = policy.StatusExpired
	if _, err := store.UpdatePolicy(ctx, expired); err != nil {
		t.Fatalf("expire policy: %v", err)
	}

	info, err := svc.GetInfo(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	if !info.Gasless {
		t.Fatal("wallet not gasless")
	}
	if info.WalletAddress == "" {
		t.Fatal("wallet address empty")
	}
	if len(info.ActivePolicies) != 1 || info.ActivePolicies[0] != active.ID {
		t.Fatalf("active policies: %v", info.ActivePolicies)
	}
}

func TestService_GetBalance(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, store, store, nil)

	balance, err := svc.GetBalance(context.Background(), memory.SeedUserID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 1000 {
		t.Fatalf("balance: %d", balance.Balance)
	}
	if balance.Currency != "INR" {
		t.Fatalf("currency: %s", balance.Currency)
	}
}

func TestService_Fund(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, store, store, nil)
	ctx := context.Background()

	result, err := svc.Fund(ctx, memory.SeedUserID, 250)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if result.PreviousBalance != 1000 || result.FundedAmount != 250 || result.NewBalance != 1250 {
		t.Fatalf("unexpected result: %+v", result)
	}

	txs, err := store.ListUserTransactions(ctx, memory.SeedUserID, ledger.TypeTopup)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != 250 {
		t.Fatalf("topup transaction mismatch: %+v", txs)
	}

	ntfs, err := store.ListUserNotifications(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(ntfs) != 1 || ntfs[0].Title != "Wallet funded!" {
		t.Fatalf("notification missing: %+v", ntfs)
	}
}

func TestService_FundRejectsNonPositiveAmounts(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, store, store, nil)

	for _, amount := range []int64{0, -10} {
		if _, err := svc.Fund(context.Background(), memory.SeedUserID, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestService_UnknownUser(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, store, store, nil)

	if _, err := svc.GetInfo(context.Background(), "user_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Fund(context.Background(), "user_missing", 10); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

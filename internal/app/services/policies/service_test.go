package policies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
)

func newService(t *testing.T, clock clockwork.Clock) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewWithClock(clock)
	return New(store, store, store, store, store, clock, nil), store
}

func TestQuote(t *testing.T) {
	cases := []struct {
		name     string
		score    int
		hours    int
		base     int64
		rate     int
		paid     int64
		discount int64
	}{
		{"discounted ten hours", 50, 10, 250, 20, 200, 50},
		{"below threshold", 49, 10, 250, 0, 250, 0},
		{"above threshold", 80, 4, 100, 20, 80, 20},
		{"one hour discounted truncates", 50, 1, 25, 20, 20, 5},
		{"three hours discounted truncates", 50, 3, 75, 20, 60, 15},
		{"zero score", 0, 2, 50, 0, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Quote(tc.score, tc.hours)
			if got.BasePremium != tc.base {
				t.Fatalf("base premium: %d", got.BasePremium)
			}
			if got.DiscountRate != tc.rate {
				t.Fatalf("discount rate: %d", got.DiscountRate)
			}
			if got.PremiumPaid != tc.paid {
				t.Fatalf("premium paid: %d", got.PremiumPaid)
			}
			if got.DiscountAmount != tc.discount {
				t.Fatalf("discount amount: %d", got.DiscountAmount)
			}
		})
	}
}

func TestService_Purchase(t *testing.T) {
	svc, store := newService(t, clockwork.NewFakeClock())
	ctx := context.Background()

	result, err := svc.Purchase(ctx, memory.SeedUserID, 10)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if result.Breakdown.PremiumPaid != 200 {
		t.Fatalf("premium paid: %d", result.Breakdown.PremiumPaid)
	}
	if result.NewBalance != 800 {
		t.Fatalf("new balance: %d", result.NewBalance)
	}
	if result.Policy.Status != policy.StatusActive {
		t.Fatalf("policy status: %s", result.Policy.Status)
	}
	if result.Policy.PremiumPaid != 200 {
		t.Fatalf("policy premium: %d", result.Policy.PremiumPaid)
	}

	txs, err := store.ListUserTransactions(ctx, memory.SeedUserID, ledger.TypePremium)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 premium transaction, got %d", len(txs))
	}
	if txs[0].ReferenceID != result.Policy.ID {
		t.Fatalf("transaction reference: %s", txs[0].ReferenceID)
	}
	if txs[0].Amount != 200 {
		t.Fatalf("transaction amount: %d", txs[0].Amount)
	}

	ntfs, err := store.ListUserNotifications(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(ntfs) != 1 || ntfs[0].Title != "Coverage purchased!" {
		t.Fatalf("notification missing: %+v", ntfs)
	}
}

func TestService_PurchaseInsufficientBalance(t *testing.T) {
	svc, store := newService(t, clockwork.NewFakeClock())
	ctx := context.Background()

	// 1000h at score 50 prices to 20000, far above the seeded 1000.
	if _, err := svc.Purchase(ctx, memory.SeedUserID, 1000); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Nothing was debited or recorded.
	u, err := store.GetUser(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Balance != 1000 {
		t.Fatalf("balance changed: %d", u.Balance)
	}
	list, err := store.ListUserPolicies(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("list policies: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("policy created despite failure: %d", len(list))
	}
}

func TestService_PurchaseInvalidDuration(t *testing.T) {
	svc, _ := newService(t, clockwork.NewFakeClock())

	for _, hours := range []int{0, -3} {
		if _, err := svc.Purchase(context.Background(), memory.SeedUserID, hours); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("hours %d: expected ErrInvalidDuration, got %v", hours, err)
		}
	}
}

func TestService_PurchaseUnknownUser(t *testing.T) {
	svc, _ := newService(t, clockwork.NewFakeClock())

	if _, err := svc.Purchase(context.Background(), "user_missing", 2); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ActivePolicyLazyExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, store := newService(t, clock)
	ctx := context.Background()

	bought, err := svc.Purchase(ctx, memory.SeedUserID, 2)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	active, ok, err := svc.ActivePolicy(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("active policy: %v", err)
	}
	if !ok || active.ID != bought.Policy.ID {
		t.Fatalf("expected active policy %s, got ok=%v id=%s", bought.Policy.ID, ok, active.ID)
	}

	clock.Advance(3 * time.Hour)

	_, ok, err = svc.ActivePolicy(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("active policy after expiry: %v", err)
	}
	if ok {
		t.Fatal("expired policy still reported active")
	}

	// The read flagged the policy expired in place.
	stored, err := store.GetPolicy(ctx, bought.Policy.ID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if stored.Status != policy.StatusExpired {
		t.Fatalf("policy not flagged expired: %s", stored.Status)
	}
}

func TestService_ActivePolicyFirstUnexpiredWins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, _ := newService(t, clock)
	ctx := context.Background()

	short, err := svc.Purchase(ctx, memory.SeedUserID, 1)
	if err != nil {
		t.Fatalf("purchase short: %v", err)
	}
	long, err := svc.Purchase(ctx, memory.SeedUserID, 12)
	if err != nil {
		t.Fatalf("purchase long: %v", err)
	}

	// Both live: insertion order picks the first.
	active, ok, err := svc.ActivePolicy(ctx, memory.SeedUserID)
	if err != nil || !ok {
		t.Fatalf("active policy: ok=%v err=%v", ok, err)
	}
	if active.ID != short.Policy.ID {
		t.Fatalf("expected first policy, got %s", active.ID)
	}

	clock.Advance(2 * time.Hour)

	active, ok, err = svc.ActivePolicy(ctx, memory.SeedUserID)
	if err != nil || !ok {
		t.Fatalf("active policy after advance: ok=%v err=%v", ok, err)
	}
	if active.ID != long.Policy.ID {
		t.Fatalf("expected second policy after first expired, got %s", active.ID)
	}
}

func TestService_ReconcileExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, store := newService(t, clock)
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, memory.SeedUserID, 1); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.Purchase(ctx, memory.SeedUserID, 2); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	keep, err := svc.Purchase(ctx, memory.SeedUserID, 10)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	clock.Advance(3 * time.Hour)

	expired, err := svc.ReconcileExpired(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 expired, got %d", expired)
	}

	stored, err := store.GetPolicy(ctx, keep.Policy.ID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if stored.Status != policy.StatusActive {
		t.Fatalf("live policy flagged: %s", stored.Status)
	}

	// Second sweep finds nothing new.
	expired, err = svc.ReconcileExpired(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected 0 expired, got %d", expired)
	}
}

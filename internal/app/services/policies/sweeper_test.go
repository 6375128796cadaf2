package policies

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
)

func TestExpirySweeper(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, store := newService(t, clock)
	ctx := context.Background()

	bought, err := svc.Purchase(ctx, memory.SeedUserID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	sweeper := NewExpirySweeper(svc, time.Minute, clock, nil)
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("start sweeper: %v", err)
	}
	defer func() {
		if err := sweeper.Stop(ctx); err != nil {
			t.Fatalf("stop sweeper: %v", err)
		}
	}()

	// Wait for the loop to register its ticker before advancing.
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("sweeper never started ticking: %v", err)
	}

	clock.Advance(2 * time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, err := store.GetPolicy(ctx, bought.Policy.ID)
		if err != nil {
			t.Fatalf("get policy: %v", err)
		}
		if stored.Status == policy.StatusExpired {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not expire policy, status %s", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Idempotent lifecycle calls.
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("double start: %v", err)
	}
}

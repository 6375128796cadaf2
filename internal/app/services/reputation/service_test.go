package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/paracipher/coverage_layer/internal/app/domain/claim"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
)

func TestBadgeFor(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, "Bronze"},
		{39, "Bronze"},
		{40, "Silver"},
		{59, "Silver"},
		{60, "Gold"},
		{79, "Gold"},
		{80, "Platinum"},
		{100, "Platinum"},
	}
	for _, tc := range cases {
		if got := BadgeFor(tc.score); got.Name != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got.Name)
		}
	}
}

func TestTierDiscount(t *testing.T) {
	if got := TierDiscount(49); got != 0 {
		t.Fatalf("score 49: %d", got)
	}
	if got := TierDiscount(50); got != 20 {
		t.Fatalf("score 50: %d", got)
	}
	if got := TierDiscount(100); got != 20 {
		t.Fatalf("score 100: %d", got)
	}
}

func TestService_Get(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	ctx := context.Background()

	nftIDs := []string{"NFT-SPEED-01", "NFT-BRAKE-02", "NFT-NIGHT-03", "NFT-104"}
	var policyIDs []string
	for _, nft := range nftIDs {
		p, err := store.CreatePolicy(ctx, policy.Policy{UserID: memory.SeedUserID, DurationHours: 2, NFTID: nft})
		if err != nil {
			t.Fatalf("create policy %s: %v", nft, err)
		}
		policyIDs = append(policyIDs, p.ID)
	}

	c, err := store.CreateClaim(ctx, claim.Claim{PolicyID: policyIDs[0], Description: "incident"})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}

	report, err := svc.Get(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.SBTScore != 50 {
		t.Fatalf("sbt score: %d", report.SBTScore)
	}
	if report.TierDiscount != 20 {
		t.Fatalf("tier discount: %d", report.TierDiscount)
	}
	if report.Metrics.TotalPolicies != 4 {
		t.Fatalf("total policies: %d", report.Metrics.TotalPolicies)
	}
	if report.Metrics.SpeedEvents != 1 || report.Metrics.HarshBraking != 1 || report.Metrics.NightShifts != 1 {
		t.Fatalf("derived metrics: %+v", report.Metrics)
	}
	// The claim is still pending, so no successful claims yet.
	if report.Metrics.SuccessfulClaims != 0 {
		t.Fatalf("successful claims: %d", report.Metrics.SuccessfulClaims)
	}
	if len(report.Badges) != 1 || report.Badges[0].Name != "Silver" {
		t.Fatalf("badges: %+v", report.Badges)
	}

	if _, err := store.ApproveClaim(ctx, c.ID, 5000); err != nil {
		t.Fatalf("approve claim: %v", err)
	}
	report, err = svc.Get(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get report after approval: %v", err)
	}
	if report.Metrics.SuccessfulClaims != 1 {
		t.Fatalf("successful claims after approval: %d", report.Metrics.SuccessfulClaims)
	}
}

func TestService_Update(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	ctx := context.Background()

	result, err := svc.Update(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.OldScore != 50 || result.NewScore != 55 || result.Delta != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Push the score near the ceiling and confirm the clamp.
	u, err := store.GetUser(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	u.SBTScore = 98
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("set score: %v", err)
	}

	result, err = svc.Update(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("update at ceiling: %v", err)
	}
	if result.NewScore != 100 || result.Delta != 2 {
		t.Fatalf("clamp failed: %+v", result)
	}

	result, err = svc.Update(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("update past ceiling: %v", err)
	}
	if result.NewScore != 100 || result.Delta != 0 {
		t.Fatalf("score exceeded ceiling: %+v", result)
	}
}

func TestService_GetUnknownUser(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)

	if _, err := svc.Get(context.Background(), "user_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

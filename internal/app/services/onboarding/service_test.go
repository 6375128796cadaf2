package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/paracipher/coverage_layer/internal/app/domain/user"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
)

func TestService_Complete(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	updated, err := svc.Complete(ctx, memory.SeedUserID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.KYCStatus != user.KYCVerified {
		t.Fatalf("kyc status: %s", updated.KYCStatus)
	}

	ntfs, err := store.ListUserNotifications(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(ntfs) != 1 || ntfs[0].Title != "Welcome to ParaCipher!" {
		t.Fatalf("welcome notification missing: %+v", ntfs)
	}
}

func TestService_CompleteRejectsUnknownStatus(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.Complete(context.Background(), memory.SeedUserID, "kinda-verified"); err == nil {
		t.Fatal("expected error for unknown kyc status")
	}
}

func TestService_GetStatus(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	status, err := svc.GetStatus(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if !status.IsComplete {
		t.Fatal("seed user should start verified")
	}
	if status.UserID != memory.SeedUserID || status.WalletAddress == "" {
		t.Fatalf("status identity fields: %+v", status)
	}

	if _, err := svc.Complete(ctx, memory.SeedUserID, user.KYCUnverified); err != nil {
		t.Fatalf("set unverified: %v", err)
	}
	status, err = svc.GetStatus(ctx, memory.SeedUserID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.IsComplete {
		t.Fatal("unverified user reported complete")
	}
}

func TestService_UnknownUser(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.GetStatus(context.Background(), "user_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Package history exposes the transaction audit trail.
package history

import (
	"context"

	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// Service reads the append-only transaction ledger.
type Service struct {
	ledger storage.LedgerStore
	log    *logger.Logger
}

// New constructs a history service.
func New(ledgerStore storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("history")
	}
	return &Service{ledger: ledgerStore, log: log}
}

// List returns the user's transactions newest first. An empty filter matches
// every type.
func (s *Service) List(ctx context.Context, userID string, typeFilter ledger.Type) ([]ledger.Transaction, error) {
	return s.ledger.ListUserTransactions(ctx, userID, typeFilter)
}

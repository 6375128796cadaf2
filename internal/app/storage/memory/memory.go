// Package memory provides the in-memory implementation of the storage
// interfaces. It is the single source of truth for the demo deployment and is
// safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/domain/claim"
	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/domain/session"
	"github.com/paracipher/coverage_layer/internal/app/domain/user"
	"github.com/paracipher/coverage_layer/internal/app/ids"
	"github.com/paracipher/coverage_layer/internal/app/storage"
)

// SeedUserID identifies the single demo user created by Reset.
const SeedUserID = "user_001"

const (
	seedBalance  = 1000
	seedSBTScore = 50
)

// Store is a mutex-guarded in-memory persistence layer implementing every
// storage interface. Policies, transactions and notifications preserve
// insertion order. All timestamps come from the injected clock.
type Store struct {
	mu    sync.RWMutex
	opMu  sync.Mutex
	clock clockwork.Clock

	users         map[string]user.User
	policies      map[string]policy.Policy
	policyOrder   []string
	claims        map[string]claim.Claim
	claimOrder    []string
	transactions  []ledger.Transaction
	notifications []notification.Notification
	sessions      map[string]session.Session
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PolicyStore = (*Store)(nil)
var _ storage.ClaimStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.Resetter = (*Store)(nil)
var _ storage.OpLocker = (*Store)(nil)

// New creates a store seeded with the demo user, using the wall clock.
func New() *Store {
	return NewWithClock(clockwork.NewRealClock())
}

// NewWithClock creates a seeded store whose timestamps and coverage windows
// are driven by the given clock. Tests pass a fake clock to control expiry.
func NewWithClock(clock clockwork.Clock) *Store {
	s := &Store{clock: clock}
	_, _ = s.Reset(context.Background())
	return s
}

// LockOps serializes compound business operations (purchase, claim, fund,
// reset) so their check-mutate-record sequences cannot interleave.
func (s *Store) LockOps() { s.opMu.Lock() }

// UnlockOps releases the compound-operation lock.
func (s *Store) UnlockOps() { s.opMu.Unlock() }

func (s *Store) now() time.Time { return s.clock.Now().UTC() }

// Reset wipes every collection and reseeds the single demo user with a fresh
// synthetic wallet address. Idempotent; no prior state survives.
func (s *Store) Reset(_ context.Context) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := user.User{
		ID:            SeedUserID,
		WalletAddress: ids.WalletAddress(),
		KYCStatus:     user.KYCVerified,
		SBTScore:      seedSBTScore,
		Balance:       seedBalance,
		CreatedAt:     s.now().AddDate(0, 0, -7),
	}

	s.users = map[string]user.User{SeedUserID: seed}
	s.policies = make(map[string]policy.Policy)
	s.policyOrder = nil
	s.claims = make(map[string]claim.Claim)
	s.claimOrder = nil
	s.transactions = nil
	s.notifications = nil
	s.sessions = make(map[string]session.Session)

	return seed, nil
}

// UserStore implementation -----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = ids.UserID()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	if u.WalletAddress == "" {
		u.WalletAddress = ids.WalletAddress()
	}
	if u.KYCStatus == "" {
		u.KYCStatus = user.KYCUnverified
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	u.CreatedAt = original.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateBalance(_ context.Context, userID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}

	u.Balance += delta
	s.users[userID] = u
	return u.Balance, nil
}

// PolicyStore implementation ---------------------------------------------------

func (s *Store) CreatePolicy(_ context.Context, p policy.Policy) (policy.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = ids.PolicyID()
	} else if _, exists := s.policies[p.ID]; exists {
		return policy.Policy{}, fmt.Errorf("policy %s already exists", p.ID)
	}
	if p.NFTID == "" {
		p.NFTID = ids.NFTID()
	}
	if p.Status == "" {
		p.Status = policy.StatusActive
	}

	now := s.now()
	if p.CoverageStart.IsZero() {
		p.CoverageStart = now
	}
	p.CoverageEnd = p.CoverageStart.Add(time.Duration(p.DurationHours) * time.Hour)
	p.CreatedAt = now

	s.policies[p.ID] = p
	s.policyOrder = append(s.policyOrder, p.ID)
	return p, nil
}

func (s *Store) GetPolicy(_ context.Context, id string) (policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return policy.Policy{}, fmt.Errorf("policy %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListUserPolicies(_ context.Context, userID string) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Policy, 0)
	for _, id := range s.policyOrder {
		if p := s.policies[id]; p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *Store) ListPolicies(_ context.Context) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Policy, 0, len(s.policyOrder))
	for _, id := range s.policyOrder {
		result = append(result, s.policies[id])
	}
	return result, nil
}

func (s *Store) UpdatePolicy(_ context.Context, p policy.Policy) (policy.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.policies[p.ID]
	if !ok {
		return policy.Policy{}, fmt.Errorf("policy %s: %w", p.ID, storage.ErrNotFound)
	}

	p.UserID = original.UserID
	p.CreatedAt = original.CreatedAt
	s.policies[p.ID] = p
	return p, nil
}

// ClaimStore implementation ----------------------------------------------------

func (s *Store) CreateClaim(_ context.Context, c claim.Claim) (claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = ids.ClaimID()
	} else if _, exists := s.claims[c.ID]; exists {
		return claim.Claim{}, fmt.Errorf("claim %s already exists", c.ID)
	}
	if c.Status == "" {
		c.Status = claim.StatusPending
	}
	c.CreatedAt = s.now()
	c.PayoutAmount = nil
	c.PayoutTxHash = nil
	c.PayoutDate = nil

	s.claims[c.ID] = c
	s.claimOrder = append(s.claimOrder, c.ID)
	return c, nil
}

func (s *Store) GetClaim(_ context.Context, id string) (claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return claim.Claim{}, fmt.Errorf("claim %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListPolicyClaims(_ context.Context, policyID string) ([]claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]claim.Claim, 0)
	for _, id := range s.claimOrder {
		if c := s.claims[id]; c.PolicyID == policyID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *Store) ApproveClaim(_ context.Context, id string, payoutAmount int64) (claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[id]
	if !ok {
		return claim.Claim{}, fmt.Errorf("claim %s: %w", id, storage.ErrNotFound)
	}

	hash := ids.TxHash()
	paidAt := s.now()
	c.Status = claim.StatusPaid
	c.PayoutAmount = &payoutAmount
	c.PayoutTxHash = &hash
	c.PayoutDate = &paidAt

	s.claims[id] = c
	return c, nil
}

// LedgerStore implementation ---------------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = ids.TransactionID()
	}
	if tx.Status == "" {
		tx.Status = ledger.StatusSuccess
	}
	tx.Timestamp = s.now()
	if tx.Status == ledger.StatusSuccess {
		hash := ids.TxHash()
		tx.ReferenceHash = &hash
	} else {
		tx.ReferenceHash = nil
	}

	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *Store) ListUserTransactions(_ context.Context, userID string, typeFilter ledger.Type) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ledger.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if typeFilter != "" && tx.Type != typeFilter {
			continue
		}
		result = append(result, tx)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// NotificationStore implementation ---------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = ids.NotificationID()
	}
	if n.Type == "" {
		n.Type = notification.TypeInfo
	}
	n.Read = false
	n.CreatedAt = s.now()

	s.notifications = append(s.notifications, n)
	return n, nil
}

func (s *Store) ListUserNotifications(_ context.Context, userID string) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]notification.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications[i].Read = true
			return s.notifications[i], nil
		}
	}
	return notification.Notification{}, fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
}

// SessionStore implementation --------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.CreatedAt = s.now()
	s.sessions[sess.Token] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, token string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return session.Session{}, fmt.Errorf("session: %w", storage.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) InvalidateSession(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

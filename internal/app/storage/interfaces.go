package storage

import (
	"context"
	"errors"

	"github.com/paracipher/coverage_layer/internal/app/domain/claim"
	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/notification"
	"github.com/paracipher/coverage_layer/internal/app/domain/policy"
	"github.com/paracipher/coverage_layer/internal/app/domain/session"
	"github.com/paracipher/coverage_layer/internal/app/domain/user"
)

// ErrNotFound reports that a referenced entity does not exist. Store
// implementations wrap it with the entity kind and id.
var ErrNotFound = errors.New("not found")

// UserStore persists user records. UpdateBalance applies the delta without
// clamping; callers must pre-validate sufficient balance before debiting.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateBalance(ctx context.Context, userID string, delta int64) (int64, error)
}

// PolicyStore persists coverage policies. CreatePolicy assigns the id,
// certificate reference and coverage window; ListUserPolicies returns policies
// in insertion order.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, p policy.Policy) (policy.Policy, error)
	GetPolicy(ctx context.Context, id string) (policy.Policy, error)
	ListUserPolicies(ctx context.Context, userID string) ([]policy.Policy, error)
	ListPolicies(ctx context.Context) ([]policy.Policy, error)
	UpdatePolicy(ctx context.Context, p policy.Policy) (policy.Policy, error)
}

// ClaimStore persists claims. ApproveClaim transitions a claim to paid and
// stamps the payout fields.
type ClaimStore interface {
	CreateClaim(ctx context.Context, c claim.Claim) (claim.Claim, error)
	GetClaim(ctx context.Context, id string) (claim.Claim, error)
	ListPolicyClaims(ctx context.Context, policyID string) ([]claim.Claim, error)
	ApproveClaim(ctx context.Context, id string, payoutAmount int64) (claim.Claim, error)
}

// LedgerStore persists the append-only transaction audit trail.
// ListUserTransactions returns newest first; an empty type filter matches all.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string, typeFilter ledger.Type) ([]ledger.Transaction, error)
}

// NotificationStore persists user-facing messages, newest first on listing.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListUserNotifications(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error)
}

// SessionStore persists ephemeral auth sessions. InvalidateSession reports
// whether a session was actually removed.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)
	GetSession(ctx context.Context, token string) (session.Session, error)
	InvalidateSession(ctx context.Context, token string) (bool, error)
}

// Resetter wipes every collection and reseeds the single demo user. Reset is
// idempotent and callable at any time.
type Resetter interface {
	Reset(ctx context.Context) (user.User, error)
}

// OpLocker serializes compound business operations that span several store
// mutations (balance check, debit, ledger append). Individual store operations
// are already safe on their own; the op lock prevents interleaving between
// them.
type OpLocker interface {
	LockOps()
	UnlockOps()
}

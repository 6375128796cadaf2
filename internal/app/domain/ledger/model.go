package ledger

import "time"

// Type classifies a money movement.
type Type string

const (
	TypePremium Type = "premium"
	TypeClaim   Type = "claim"
	TypeRefund  Type = "refund"
	TypeTopup   Type = "topup"
)

// Status records whether the movement settled.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Transaction is an append-only audit record of a money movement. ReferenceHash
// is present only for successful transactions; ReferenceID links to the policy
// or claim that caused the movement, or is empty.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Type          Type      `json:"type"`
	Amount        int64     `json:"amount"`
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ReferenceHash *string   `json:"referenceHash"`
	ReferenceID   string    `json:"referenceId"`
}

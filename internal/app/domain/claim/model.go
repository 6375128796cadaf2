package claim

import "time"

// Status tracks claim adjudication. Only pending and paid are reachable in the
// current flows; rejected is reserved for a future review queue.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRejected Status = "rejected"
)

// Claim is a payout request filed against a policy. Payout fields are nil
// until the claim is approved.
type Claim struct {
	ID           string     `json:"id"`
	PolicyID     string     `json:"policyId"`
	Status       Status     `json:"status"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"createdAt"`
	PayoutAmount *int64     `json:"payoutAmount"`
	PayoutTxHash *string    `json:"payoutTxHash"`
	PayoutDate   *time.Time `json:"payoutDate"`
}

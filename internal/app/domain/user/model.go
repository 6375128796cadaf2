package user

import "time"

// KYCStatus is the outcome of the (mocked) identity verification flow.
type KYCStatus string

const (
	KYCUnverified KYCStatus = "unverified"
	KYCVerified   KYCStatus = "verified"
)

// User represents a gig worker holding a wallet balance and a reputation score.
// Balance is an integer in a single implicit currency unit; SBTScore is bounded
// to [0, 100].
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	KYCStatus     KYCStatus `json:"kycStatus"`
	SBTScore      int       `json:"sbtScore"`
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
}

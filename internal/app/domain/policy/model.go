package policy

import "time"

// Status tracks the coverage lifecycle. A policy is flagged expired lazily the
// first time it is read after its coverage window closes.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Policy is a time-bounded coverage contract purchased by a user. NFTID is an
// opaque certificate reference; CoverageEnd = CoverageStart + DurationHours.
type Policy struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	DurationHours int       `json:"durationHours"`
	PremiumPaid   int64     `json:"premiumPaid"`
	Status        Status    `json:"status"`
	NFTID         string    `json:"nftId"`
	CoverageStart time.Time `json:"coverageStart"`
	CoverageEnd   time.Time `json:"coverageEnd"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsExpired reports whether the coverage window has closed at the given
// instant. It does not consult Status.
func (p Policy) IsExpired(now time.Time) bool {
	return !p.CoverageEnd.After(now)
}

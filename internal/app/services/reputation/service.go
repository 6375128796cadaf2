// Package reputation derives badge tiers and safety metrics from a user's SBT
// score and coverage history.
package reputation

import (
	"context"
	"strings"

	"github.com/paracipher/coverage_layer/internal/app/domain/claim"
	"github.com/paracipher/coverage_layer/internal/app/services/policies"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// MaxScore caps the SBT score; UpdateBump is added on each reputation update,
// clamped to the cap.
const (
	MaxScore   = 100
	UpdateBump = 5
)

// Badge is a display tier derived from the SBT score.
type Badge struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// BadgeFor maps a score to exactly one badge. Thresholds are inclusive lower
// bounds checked in descending order.
func BadgeFor(score int) Badge {
	switch {
	case score >= 80:
		return Badge{Name: "Platinum", Icon: "⭐⭐⭐"}
	case score >= 60:
		return Badge{Name: "Gold", Icon: "⭐⭐"}
	case score >= 40:
		return Badge{Name: "Silver", Icon: "⭐"}
	default:
		return Badge{Name: "Bronze", Icon: "🛡️"}
	}
}

// TierDiscount returns the premium discount percentage granted at the given
// score.
func TierDiscount(score int) int {
	if score >= policies.TierDiscountThreshold {
		return policies.TierDiscountPercent
	}
	return 0
}

// Metrics are synthetic safety metrics. The event counters pattern-match
// substrings of each policy's certificate reference as a stand-in for real
// telematics ingestion.
type Metrics struct {
	SpeedEvents      int `json:"speedEvents"`
	HarshBraking     int `json:"harshBraking"`
	NightShifts      int `json:"nightShifts"`
	SuccessfulClaims int `json:"successfulClaims"`
	TotalPolicies    int `json:"totalPolicies"`
}

// Report is the full Safety Passport view for a user.
type Report struct {
	SBTScore     int     `json:"sbtScore"`
	TierDiscount int     `json:"tierDiscount"`
	Metrics      Metrics `json:"metrics"`
	Badges       []Badge `json:"badges"`
}

// UpdateResult describes a reputation bump. Delta may be less than UpdateBump
// near the score ceiling.
type UpdateResult struct {
	OldScore int `json:"oldScore"`
	NewScore int `json:"newScore"`
	Delta    int `json:"delta"`
}

// Service computes reputation reports and applies score bumps.
type Service struct {
	users    storage.UserStore
	policies storage.PolicyStore
	claims   storage.ClaimStore
	log      *logger.Logger
}

// New constructs a reputation service.
func New(users storage.UserStore, policyStore storage.PolicyStore, claimStore storage.ClaimStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reputation")
	}
	return &Service{users: users, policies: policyStore, claims: claimStore, log: log}
}

// Get builds the Safety Passport report for a user.
func (s *Service) Get(ctx context.Context, userID string) (Report, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	list, err := s.policies.ListUserPolicies(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	m := Metrics{TotalPolicies: len(list)}
	for _, p := range list {
		ref := strings.ToLower(p.NFTID)
		if strings.Contains(ref, "speed") {
			m.SpeedEvents++
		}
		if strings.Contains(ref, "brake") {
			m.HarshBraking++
		}
		if strings.Contains(ref, "night") {
			m.NightShifts++
		}

		claimsList, err := s.claims.ListPolicyClaims(ctx, p.ID)
		if err != nil {
			return Report{}, err
		}
		for _, c := range claimsList {
			if c.Status == claim.StatusPaid {
				m.SuccessfulClaims++
			}
		}
	}

	return Report{
		SBTScore:     u.SBTScore,
		TierDiscount: TierDiscount(u.SBTScore),
		Metrics:      m,
		Badges:       []Badge{BadgeFor(u.SBTScore)},
	}, nil
}

// Update bumps the user's SBT score by UpdateBump, clamped at MaxScore.
func (s *Service) Update(ctx context.Context, userID string) (UpdateResult, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return UpdateResult{}, err
	}

	old := u.SBTScore
	u.SBTScore = min(old+UpdateBump, MaxScore)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return UpdateResult{}, err
	}

	s.log.Infof("reputation for %s updated %d -> %d", userID, old, u.SBTScore)
	return UpdateResult{OldScore: old, NewScore: u.SBTScore, Delta: u.SBTScore - old}, nil
}

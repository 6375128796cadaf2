package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/services/auth"
	"github.com/paracipher/coverage_layer/internal/app/services/claims"
	"github.com/paracipher/coverage_layer/internal/app/services/demo"
	"github.com/paracipher/coverage_layer/internal/app/services/history"
	"github.com/paracipher/coverage_layer/internal/app/services/notifications"
	"github.com/paracipher/coverage_layer/internal/app/services/onboarding"
	"github.com/paracipher/coverage_layer/internal/app/services/policies"
	"github.com/paracipher/coverage_layer/internal/app/services/reputation"
	"github.com/paracipher/coverage_layer/internal/app/services/wallet"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
	"github.com/paracipher/coverage_layer/internal/app/system"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Policies      storage.PolicyStore
	Claims        storage.ClaimStore
	Ledger        storage.LedgerStore
	Notifications storage.NotificationStore
	Sessions      storage.SessionStore
	Resetter      storage.Resetter
	Ops           storage.OpLocker
}

// Options tunes application construction.
type Options struct {
	// Clock drives every timestamp and coverage window. Nil means wall clock.
	Clock clockwork.Clock

	// AuthSecret signs session tokens.
	AuthSecret string

	// TokenExpiry bounds session token lifetime.
	TokenExpiry time.Duration

	// SweepInterval schedules the background policy expiry sweep. Zero
	// disables the sweeper.
	SweepInterval time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Policies      *policies.Service
	Claims        *claims.Service
	Reputation    *reputation.Service
	Wallet        *wallet.Service
	History       *history.Service
	Notifications *notifications.Service
	Onboarding    *onboarding.Service
	Auth          *auth.Service
	Demo          *demo.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	mem := memory.NewWithClock(clock)
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Policies == nil {
		stores.Policies = mem
	}
	if stores.Claims == nil {
		stores.Claims = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Resetter == nil {
		stores.Resetter = mem
	}
	if stores.Ops == nil {
		stores.Ops = mem
	}

	manager := system.NewManager()

	policySvc := policies.New(stores.Users, stores.Policies, stores.Ledger, stores.Notifications, stores.Ops, clock, log)
	claimSvc := claims.New(stores.Users, stores.Claims, stores.Ledger, stores.Notifications, policySvc, stores.Ops, log)
	reputationSvc := reputation.New(stores.Users, stores.Policies, stores.Claims, log)
	walletSvc := wallet.New(stores.Users, stores.Policies, stores.Ledger, stores.Notifications, stores.Ops, log)
	historySvc := history.New(stores.Ledger, log)
	notificationSvc := notifications.New(stores.Notifications, log)
	onboardingSvc := onboarding.New(stores.Users, stores.Notifications, log)
	authSvc := auth.New(stores.Users, stores.Sessions, clock, opts.AuthSecret, opts.TokenExpiry, memory.SeedUserID, log)
	demoSvc := demo.New(stores.Users, policySvc, stores.Resetter, stores.Ops, log)

	for _, name := range []string{"policies", "claims", "reputation", "wallet", "auth"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	if opts.SweepInterval > 0 {
		sweeper := policies.NewExpirySweeper(policySvc, opts.SweepInterval, clock, log)
		if err := manager.Register(sweeper); err != nil {
			return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
		}
	} else {
		log.Warn("policy expiry sweeper disabled; relying on lazy read-side expiry only")
	}

	return &Application{
		manager:       manager,
		log:           log,
		Policies:      policySvc,
		Claims:        claimSvc,
		Reputation:    reputationSvc,
		Wallet:        walletSvc,
		History:       historySvc,
		Notifications: notificationSvc,
		Onboarding:    onboardingSvc,
		Auth:          authSvc,
		Demo:          demoSvc,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

package policies

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/system"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// ExpirySweeper periodically reconciles time-expired policies so the store
// does not accumulate stale active flags between reads.
type ExpirySweeper struct {
	service  *Service
	interval time.Duration
	clock    clockwork.Clock
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ system.Service = (*ExpirySweeper)(nil)

// NewExpirySweeper creates a sweeper. A non-positive interval defaults to one
// minute.
func NewExpirySweeper(service *Service, interval time.Duration, clock clockwork.Clock, log *logger.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault("policy-sweeper")
	}
	return &ExpirySweeper{service: service, interval: interval, clock: clock, log: log}
}

func (s *ExpirySweeper) Name() string { return "policy-expiry-sweeper" }

// Start launches the sweep loop.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *ExpirySweeper) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *ExpirySweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := s.service.ReconcileExpired(ctx); err != nil {
				s.log.WithError(err).Warn("expiry sweep failed")
			}
		}
	}
}

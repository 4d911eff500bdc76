package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultExpirerInterval = 1 * time.Minute
	defaultIdleTTL         = 15 * time.Minute
)

// ExpirerService unloads models that have not served a request for a while,
// keeping resident memory proportional to the active agent set.
type ExpirerService struct {
	models *ModelService
	logger *zap.Logger

	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewExpirerService(models *ModelService, logger *zap.Logger) *ExpirerService {
	return &ExpirerService{
		models:   models,
		logger:   logger,
		interval: defaultExpirerInterval,
		ttl:      defaultIdleTTL,
		stopCh:   make(chan struct{}),
	}
}

func (s *ExpirerService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *ExpirerService) SetTTL(d time.Duration) {
	if d > 0 {
		s.ttl = d
	}
}

// Start runs the expirer on a periodic schedule in a background goroutine.
func (s *ExpirerService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("model expirer started",
			zap.Duration("interval", s.interval),
			zap.Duration("ttl", s.ttl))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("model expirer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the expirer.
func (s *ExpirerService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *ExpirerService) run(ctx context.Context) {
	if _, err := s.models.EvictIdle(ctx, s.ttl); err != nil {
		s.logger.Error("eviction sweep finished with errors", zap.Error(err))
	}
}

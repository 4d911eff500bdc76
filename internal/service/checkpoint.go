package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCheckpointInterval = 30 * time.Second

// CheckpointService periodically writes dirty models back to the store so a
// crash loses at most one interval of learning.
type CheckpointService struct {
	models *ModelService
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewCheckpointService(models *ModelService, logger *zap.Logger) *CheckpointService {
	return &CheckpointService{
		models:   models,
		logger:   logger,
		interval: defaultCheckpointInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *CheckpointService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the checkpointer on a periodic schedule in a background goroutine.
func (s *CheckpointService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("checkpointer started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("checkpointer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the checkpointer.
func (s *CheckpointService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *CheckpointService) run(ctx context.Context) {
	flushed, err := s.models.FlushDirty(ctx)
	if err != nil {
		s.logger.Error("checkpoint sweep finished with errors", zap.Error(err))
	}
	if flushed > 0 {
		s.logger.Info("checkpointed dirty models", zap.Int("count", flushed))
	}
}

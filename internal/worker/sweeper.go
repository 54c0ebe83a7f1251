package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"groupbuy-coordinator/internal/pkg/config"
	"groupbuy-coordinator/internal/usecase/commands"
)

// Sweeper periodically transitions past-deadline Open sessions to Expired.
// It coordinates with concurrent joins purely through the repository's
// conditional write; a lost race on an individual session is skipped.
type Sweeper struct {
	sessions commands.SessionCommands
	interval time.Duration
	batch    int
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewSweeper(sessions commands.SessionCommands, cfg config.Config, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: cfg.Sweep.Interval,
		batch:    cfg.Sweep.Batch,
		logger:   logger,
	}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep pass. Exposed so tests can drive the sweeper without
// waiting on the ticker.
func (s *Sweeper) Tick(ctx context.Context) {
	swept, err := s.sessions.SweepExpired(ctx, s.batch)
	if err != nil {
		s.logger.Warn("expiry sweep failed", "error", err)
		return
	}
	if swept > 0 {
		s.logger.Info("expired sessions swept", "count", swept)
	}
}

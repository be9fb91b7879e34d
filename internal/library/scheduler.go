package library

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often the scheduler re-indexes the library.
const DefaultInterval = 24 * time.Hour

// Scheduler runs a re-index pass on a fixed interval.
type Scheduler struct {
	reindexer *Reindexer
	interval  time.Duration
	logger    *logrus.Logger
	// OnReport, when set, receives the report of every completed pass.
	OnReport func(Report)
}

// NewScheduler creates a scheduler. A non-positive interval means
// DefaultInterval.
func NewScheduler(reindexer *Reindexer, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{reindexer: reindexer, interval: interval, logger: logger}
}

// Run re-indexes once immediately and then every interval until ctx is done.
// It returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.reindexer.Run(ctx, nil)
	if err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("scheduled re-index failed")
	}
	if err == nil && s.OnReport != nil {
		s.OnReport(report)
	}
}

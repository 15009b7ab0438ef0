package exam

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/trezcool/examguard/core"
)

// Sweeper periodically expires attempts whose time ran out without a submission,
// so time enforcement does not depend on the client.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   core.Logger

	runs    atomic.Int64
	expired atomic.Int64
}

func NewSweeper(svc *Service, interval time.Duration, logger core.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", map[string]interface{}{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped", map[string]interface{}{
				"runs": s.runs.Load(), "expired": s.expired.Load(),
			})
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("expiry sweep failed", err)
			}
		}
	}
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.runs.Add(1)
	n, err := s.svc.ExpireOverdue(ctx)
	s.expired.Add(int64(n))
	if n > 0 {
		s.logger.Info("overdue attempts expired", map[string]interface{}{"count": n})
	}
	return n, err
}

// Stats returns the number of passes run and attempts expired so far.
func (s *Sweeper) Stats() (runs, expired int64) {
	return s.runs.Load(), s.expired.Load()
}

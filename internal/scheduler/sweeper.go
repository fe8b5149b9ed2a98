package scheduler

import (
	"context"
	"time"

	crmsyncservice "leadlift_backend/internal/crmsync/service"
	seqservice "leadlift_backend/internal/sequences/service"
	"leadlift_backend/platform/logger"
)

// Sweeper periodically recovers work the queue lost track of: sync claims
// orphaned by a worker crash, pending sync records without a live job, stale
// failed records still under their retry budget, synced records past the
// staleness window, and active sequences whose wake time passed unserved.
type Sweeper struct {
	syncSvc  *crmsyncservice.Service
	seqSvc   *seqservice.Service
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(syncSvc *crmsyncservice.Service, seqSvc *seqservice.Service, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{syncSvc: syncSvc, seqSvc: seqSvc, interval: interval, log: log}
}

// Run blocks until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("resync sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("resync sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.syncSvc.RecoverStalled(ctx); err != nil {
		s.log.Error("sweep stalled claims failed", "error", err)
	} else if n > 0 {
		s.log.Info("sweep released stalled sync claims", "count", n)
	}

	if n, err := s.syncSvc.SyncPending(ctx); err != nil {
		s.log.Error("sweep pending syncs failed", "error", err)
	} else if n > 0 {
		s.log.Info("sweep requeued pending syncs", "count", n)
	}

	if n, err := s.syncSvc.RetryAllFailed(ctx); err != nil {
		s.log.Error("sweep failed syncs failed", "error", err)
	} else if n > 0 {
		s.log.Info("sweep requeued failed syncs", "count", n)
	}

	if n, err := s.syncSvc.ResyncStale(ctx); err != nil {
		s.log.Error("sweep stale syncs failed", "error", err)
	} else if n > 0 {
		s.log.Info("sweep requeued stale syncs", "count", n)
	}

	if n, err := s.seqSvc.RescheduleStalled(ctx); err != nil {
		s.log.Error("sweep stalled sequences failed", "error", err)
	} else if n > 0 {
		s.log.Info("sweep rescheduled stalled sequences", "count", n)
	}
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// HealthReporter receives the outcome of each scheduled pass.
type HealthReporter interface {
	SetServing(serving bool)
}

// ReconcileScheduler runs ReconcileAll in the background: once at start,
// then on every interval tick. An interval of 0 disables it.
type ReconcileScheduler struct {
	reconciler *EventReconciler
	interval   time.Duration
	health     HealthReporter
	logger     logrus.FieldLogger
	cancel     context.CancelFunc
	done       chan struct{}

	mu      sync.Mutex
	last    types.ReconcileSummary
	lastRun time.Time
}

func NewReconcileScheduler(r *EventReconciler, interval time.Duration, health HealthReporter, logger logrus.FieldLogger) *ReconcileScheduler {
	return &ReconcileScheduler{
		reconciler: r,
		interval:   interval,
		health:     health,
		logger:     logger.WithField("component", "scheduler"),
		done:       make(chan struct{}),
	}
}

// Start begins the background loop. The loop exits when ctx is cancelled or
// Stop is called.
func (s *ReconcileScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("reconcile scheduler disabled (interval=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)

	s.logger.WithField("interval", s.interval).Info("reconcile scheduler started")
}

// Stop signals the loop to exit and waits for an in-flight pass to finish.
func (s *ReconcileScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Last returns the summary of the most recent pass and when it finished.
func (s *ReconcileScheduler) Last() (types.ReconcileSummary, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastRun
}

func (s *ReconcileScheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ReconcileScheduler) runOnce(ctx context.Context) {
	summary := types.Summarize(s.reconciler.ReconcileAll(ctx))
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.last = summary
	s.lastRun = time.Now().UTC()
	s.mu.Unlock()

	// Serving unless every controller failed.
	serving := len(summary.Results) == 0 || summary.FailedCount < len(summary.Results)
	if s.health != nil {
		s.health.SetServing(serving)
	}

	s.logger.WithFields(logrus.Fields{
		"controllers": len(summary.Results),
		"failed":      summary.FailedCount,
		"inserted":    summary.Inserted,
	}).Info("scheduled reconcile pass done")
}

package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
)

type healthRecorder struct {
	mu       sync.Mutex
	statuses []bool
}

func (h *healthRecorder) SetServing(serving bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, serving)
}

func (h *healthRecorder) seen() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.statuses...)
}

func TestScheduler_DisabledIntervalNeverRuns(t *testing.T) {
	f := newReconcileFixture(t, service.ReconcilerConfig{})
	health := &healthRecorder{}

	s := service.NewReconcileScheduler(f.rec, 0, health, silentLogger())
	s.Start(context.Background())
	s.Stop()

	_, at := s.Last()
	assert.True(t, at.IsZero())
	assert.Empty(t, health.seen())
}

func TestScheduler_RunsOnStartAndReportsHealth(t *testing.T) {
	f := newReconcileFixture(t, service.ReconcilerConfig{})
	f.source.add(workshop, swipe(1001, "2026-02-15 08:00:00 UTC"))
	health := &healthRecorder{}

	s := service.NewReconcileScheduler(f.rec, time.Hour, health, silentLogger())
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, at := s.Last()
		return !at.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	summary, _ := s.Last()
	assert.Equal(t, 1, summary.Inserted)
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, []bool{true}, health.seen())
}

func TestScheduler_NotServingWhenEveryControllerFails(t *testing.T) {
	f := newReconcileFixture(t, service.ReconcilerConfig{})
	down := errors.New("gateway down")
	f.source.rangeErr[frontDoor] = down
	f.source.rangeErr[workshop] = down
	health := &healthRecorder{}

	s := service.NewReconcileScheduler(f.rec, time.Hour, health, silentLogger())
	s.Start(context.Background())

	require.Eventually(t, func() bool { return len(health.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, []bool{false}, health.seen())
	summary, _ := s.Last()
	assert.Equal(t, 2, summary.FailedCount)
}

func TestScheduler_StopEndsLoop(t *testing.T) {
	f := newReconcileFixture(t, service.ReconcilerConfig{})
	s := service.NewReconcileScheduler(f.rec, 5*time.Millisecond, nil, silentLogger())
	s.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

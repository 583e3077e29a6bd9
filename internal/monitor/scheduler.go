package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Scheduler arms a repeating timer that invokes the cycle func. It has
// two states, stopped and running; stopping is disarming, there is no
// cancellation of an in-flight cycle.
type Scheduler struct {
	run func(context.Context)
	log *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	interval time.Duration
}

// NewScheduler builds a stopped scheduler around the cycle func.
func NewScheduler(run func(context.Context), log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{run: run, log: log}
}

// Start arms the timer. Starting a running scheduler rearms it with the
// new interval, with no carry-over of elapsed time.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.interval = interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()

	s.log.Info("scheduler started", slog.Duration("interval", interval))
}

// Stop disarms the timer. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.log.Info("scheduler stopped")
	}
	s.stopLocked()
}

// Reschedule restarts the timer with a new interval.
func (s *Scheduler) Reschedule(interval time.Duration) {
	s.Start(interval)
}

// Running reports whether the timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval returns the armed period, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return 0
	}
	return s.interval
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.interval = 0
	}
}

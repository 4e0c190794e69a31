// Package services hosts the long-running background services: the tick
// scheduler driving the countdown and the scheduled state-file backups.
package services

import (
	"sync"
	"time"

	"github.com/ryzhenkov/countd/internal/clock"
	"github.com/ryzhenkov/countd/internal/logger"
	"github.com/ryzhenkov/countd/internal/metrics"
	"github.com/ryzhenkov/countd/internal/store"
	"github.com/ryzhenkov/countd/internal/timer"
)

// Broadcaster pushes a payload to every registered subscriber.
type Broadcaster interface {
	Broadcast(payload timer.Payload)
}

// TickerService drives the countdown once per interval: it advances the
// state machine when running, persists the resulting snapshot, and hands
// the current payload to the broadcaster whether or not anything changed.
type TickerService struct {
	timer      *timer.Timer
	store      *store.Store
	hub        Broadcaster
	clk        clock.Clock
	metrics    *metrics.MetricsService
	interval   time.Duration
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewTickerService creates a ticker service. interval is nominally one
// second; accuracy is best-effort, not hard real-time. metrics may be nil.
func NewTickerService(t *timer.Timer, st *store.Store, hub Broadcaster, clk clock.Clock, m *metrics.MetricsService, interval time.Duration) *TickerService {
	return &TickerService{
		timer:      t,
		store:      st,
		hub:        hub,
		clk:        clk,
		metrics:    m,
		interval:   interval,
		shutdownCh: make(chan struct{}),
	}
}

// Start begins the tick loop.
func (s *TickerService) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Infof("Ticker service started (interval: %s)", s.interval)
}

// Shutdown signals the loop to stop and waits for the in-flight iteration
// to finish, so a persist is never cut off mid-write.
func (s *TickerService) Shutdown() {
	logger.Infof("Ticker service: initiating shutdown...")
	close(s.shutdownCh)
	s.wg.Wait()
	logger.Infof("Ticker service: shutdown complete")
}

func (s *TickerService) run() {
	defer s.wg.Done()

	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCh:
			return
		case <-ticker.Chan():
			s.step()
		}
	}
}

// step is one tick iteration. It carries its own error boundary: a panic
// anywhere in the iteration is logged and the loop continues, so one bad
// tick never kills the scheduler for the life of the process.
func (s *TickerService) step() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Ticker iteration failed: %v", r)
			time.Sleep(100 * time.Millisecond)
		}
	}()

	snap, ticked := s.timer.Tick()
	if ticked {
		s.store.Save(snap)
	}

	s.hub.Broadcast(timer.Payload{Seconds: snap.Seconds, Running: snap.Running})

	if s.metrics != nil {
		s.metrics.ObserveState(snap.Seconds, snap.Running)
	}
}

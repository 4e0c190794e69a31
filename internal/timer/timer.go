// Package timer implements the authoritative countdown state machine.
// A single Timer instance is shared by the control handlers, the tick
// scheduler and the push hub; every operation runs under one mutex and
// returns the snapshot captured atomically with the mutation, so callers
// can persist or broadcast exactly the state they produced.
package timer

import (
	"sync"
	"time"

	"github.com/ryzhenkov/countd/internal/clock"
	"github.com/ryzhenkov/countd/internal/domain"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/store"
)

// Payload is the message pushed to subscribers on every tick.
type Payload struct {
	Seconds int  `json:"seconds"`
	Running bool `json:"running"`
}

// Timer holds the countdown state. Seconds never goes negative, and a
// running timer that reaches zero stops in the same critical section.
type Timer struct {
	mu         sync.Mutex
	clk        clock.Clock
	eventBus   eventbus.Publisher
	seconds    int
	running    bool
	lastUpdate time.Time
}

// New creates a fresh stopped timer at zero. The event bus may be nil.
func New(clk clock.Clock, eb eventbus.Publisher) *Timer {
	return &Timer{
		clk:        clk,
		eventBus:   eb,
		lastUpdate: clk.Now(),
	}
}

// Restore builds a Timer from a persisted snapshot, reconciling time that
// passed while the process was down: a running snapshot loses the elapsed
// wall-clock seconds (floored, clamped at zero) and stops if it ran out,
// a paused snapshot is restored verbatim. last_update always becomes now.
func Restore(clk clock.Clock, eb eventbus.Publisher, snap store.Snapshot) *Timer {
	t := New(clk, eb)
	now := clk.Now()

	if snap.Running {
		savedAt := time.Unix(0, int64(snap.LastUpdate*float64(time.Second)))
		elapsed := now.Sub(savedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		t.seconds = snap.Seconds - int(elapsed.Seconds())
		if t.seconds < 0 {
			t.seconds = 0
		}
		t.running = t.seconds > 0
	} else {
		t.seconds = snap.Seconds
		t.running = false
	}

	t.lastUpdate = now
	return t
}

// Start begins the countdown. No-op if already running or if there is
// nothing left to count down.
func (t *Timer) Start() store.Snapshot {
	t.mu.Lock()
	started := false
	if !t.running && t.seconds > 0 {
		t.running = true
		t.touch()
		started = true
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if started {
		t.publish(domain.TimerStarted, snap)
	}
	return snap
}

// Pause stops the countdown without touching the remaining time. No-op if
// already paused.
func (t *Timer) Pause() store.Snapshot {
	t.mu.Lock()
	paused := false
	if t.running {
		t.running = false
		t.touch()
		paused = true
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if paused {
		t.publish(domain.TimerPaused, snap)
	}
	return snap
}

// Reset unconditionally stops the timer and clears it to zero.
func (t *Timer) Reset() store.Snapshot {
	t.mu.Lock()
	t.seconds = 0
	t.running = false
	t.touch()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(domain.TimerReset, snap)
	return snap
}

// Adjust adds delta seconds (which may be negative), flooring at zero.
// The running flag is unchanged.
func (t *Timer) Adjust(delta int) store.Snapshot {
	t.mu.Lock()
	t.seconds += delta
	if t.seconds < 0 {
		t.seconds = 0
	}
	t.touch()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(domain.TimerAdjusted, snap)
	return snap
}

// Set replaces the remaining time, flooring at zero. The running flag is
// unchanged.
func (t *Timer) Set(value int) store.Snapshot {
	t.mu.Lock()
	t.seconds = value
	if t.seconds < 0 {
		t.seconds = 0
	}
	t.touch()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(domain.TimerSet, snap)
	return snap
}

// Tick advances a running countdown by the wall-clock time elapsed since
// the last update, clamped at zero on both ends. The second return value
// reports whether state was mutated; a paused timer returns its current
// snapshot untouched so the caller can still broadcast it.
func (t *Timer) Tick() (store.Snapshot, bool) {
	t.mu.Lock()
	if !t.running {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, false
	}

	now := t.clk.Now()
	elapsed := now.Sub(t.lastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	t.seconds -= int(elapsed.Seconds())
	if t.seconds < 0 {
		t.seconds = 0
	}
	t.touch()

	expired := false
	if t.seconds == 0 {
		t.running = false
		expired = true
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if expired {
		t.publish(domain.TimerExpired, snap)
	}
	return snap, true
}

// Snapshot returns the current state for persistence.
func (t *Timer) Snapshot() store.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Payload returns the current state for broadcasting.
func (t *Timer) Payload() Payload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Payload{Seconds: t.seconds, Running: t.running}
}

// touch moves lastUpdate to now. lastUpdate never goes backward, so a
// backward wall-clock jump cannot produce negative elapsed time later.
func (t *Timer) touch() {
	if now := t.clk.Now(); now.After(t.lastUpdate) {
		t.lastUpdate = now
	}
}

func (t *Timer) snapshotLocked() store.Snapshot {
	return store.Snapshot{
		Seconds:    t.seconds,
		Running:    t.running,
		LastUpdate: float64(t.lastUpdate.UnixNano()) / float64(time.Second),
	}
}

func (t *Timer) publish(eventType domain.EventType, snap store.Snapshot) {
	if t.eventBus == nil {
		return
	}
	t.eventBus.Publish(domain.Event{
		EventType: eventType,
		EventData: map[string]interface{}{
			"seconds": snap.Seconds,
			"running": snap.Running,
		},
	})
}

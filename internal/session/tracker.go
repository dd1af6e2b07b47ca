package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimeTracker accumulates dwell time per question. At most one question
// accumulates at any instant; switching the active question atomically
// freezes the old question's time at its last computed value.
//
// Revisiting a question resumes from its accumulated total: the active
// start timestamp is back-dated by the previously recorded seconds, so the
// next recompute continues the count instead of resetting it.
type TimeTracker struct {
	mu          sync.Mutex
	clock       func() time.Time
	elapsed     map[uuid.UUID]int
	activeID    uuid.UUID
	hasActive   bool
	activeStart time.Time
}

// NewTimeTracker creates an idle tracker.
func NewTimeTracker() *TimeTracker {
	return &TimeTracker{
		clock:   time.Now,
		elapsed: make(map[uuid.UUID]int),
	}
}

// SetActive switches accumulation to the given question. The previously
// active question is frozen first.
func (t *TimeTracker) SetActive(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.freezeLocked(now)

	t.activeID = id
	t.hasActive = true
	t.activeStart = now.Add(-time.Duration(t.elapsed[id]) * time.Second)
}

// Tick recomputes the active question's elapsed seconds from the wall
// clock. Driven at the countdown timer's cadence; safe to call at any
// rate since every call derives from the same start timestamp.
func (t *TimeTracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasActive {
		return
	}
	t.elapsed[t.activeID] = int(t.clock().Sub(t.activeStart) / time.Second)
}

// Stop freezes the active question and halts accumulation entirely.
func (t *TimeTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.freezeLocked(t.clock())
	t.hasActive = false
}

func (t *TimeTracker) freezeLocked(now time.Time) {
	if !t.hasActive {
		return
	}
	t.elapsed[t.activeID] = int(now.Sub(t.activeStart) / time.Second)
}

// Elapsed returns the recorded seconds for a question, including live time
// if the question is currently active.
func (t *TimeTracker) Elapsed(id uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasActive && t.activeID == id {
		return int(t.clock().Sub(t.activeStart) / time.Second)
	}
	return t.elapsed[id]
}

// Snapshot returns a copy of all recorded dwell times, with the active
// question brought up to date first.
func (t *TimeTracker) Snapshot() map[uuid.UUID]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasActive {
		t.elapsed[t.activeID] = int(t.clock().Sub(t.activeStart) / time.Second)
	}

	out := make(map[uuid.UUID]int, len(t.elapsed))
	for id, secs := range t.elapsed {
		out[id] = secs
	}
	return out
}

package session

import (
	"sync"
	"time"
)

// TimerEventType discriminates countdown timer events.
type TimerEventType string

const (
	// TimerTick carries the current whole seconds remaining.
	TimerTick TimerEventType = "tick"
	// TimerFinished is emitted exactly once per run, at or after the true
	// deadline, never before.
	TimerFinished TimerEventType = "finished"
)

// TimerEvent is a message from the countdown goroutine to its consumer.
type TimerEvent struct {
	Type     TimerEventType `json:"type"`
	TimeLeft int            `json:"time_left"`
}

// CountdownTimer is an independently scheduled ticking process. Remaining
// time is always recomputed from the wall-clock start timestamp, never from
// tick counting: if the consumer is starved for 30 seconds, the next tick
// reports the true elapsed time instead of having "lost" 29 ticks.
//
// The timer communicates only via its event channel; consumers never share
// mutable state with the countdown goroutine.
type CountdownTimer struct {
	mu       sync.Mutex
	clock    func() time.Time
	interval time.Duration
	events   chan TimerEvent
	run      *timerRun
}

// timerRun is one countdown. Start replaces the previous run by closing its
// stop channel; a replaced run may never emit again.
type timerRun struct {
	startAt  time.Time
	duration time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func (r *timerRun) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// NewCountdownTimer creates a stopped timer with a 1-second tick cadence.
func NewCountdownTimer() *CountdownTimer {
	return &CountdownTimer{
		clock:    time.Now,
		interval: time.Second,
		events:   make(chan TimerEvent, 16),
	}
}

// Events returns the channel carrying tick and finished events.
func (t *CountdownTimer) Events() <-chan TimerEvent {
	return t.events
}

// Start begins a countdown of the given duration. Calling Start while a run
// is active cancels and replaces it, so there are never overlapping runs.
func (t *CountdownTimer) Start(durationSeconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.run != nil {
		t.run.cancel()
	}

	run := &timerRun{
		startAt:  t.clock(),
		duration: time.Duration(durationSeconds) * time.Second,
		stop:     make(chan struct{}),
	}
	t.run = run

	go t.loop(run)
}

// Stop silences the timer. Idempotent; a stopped run can no longer emit,
// so a torn-down session cannot receive a late finished event.
func (t *CountdownTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.run != nil {
		t.run.cancel()
		t.run = nil
	}
}

// QueryNow forces an immediate tick computed from the current wall clock
// instead of waiting up to one interval for the next scheduled tick. Used
// when the client page becomes visible again. Idempotent with ordinary
// ticks: every emission derives from the wall clock, so issuing it twice
// cannot double-count elapsed time.
func (t *CountdownTimer) QueryNow() {
	t.mu.Lock()
	run := t.run
	t.mu.Unlock()

	if run == nil {
		return
	}
	t.emit(run, TimerEvent{Type: TimerTick, TimeLeft: run.remaining(t.clock())})
}

// remaining returns whole seconds left, clamped at zero.
func (r *timerRun) remaining(now time.Time) int {
	left := r.duration - now.Sub(r.startAt)
	if left < 0 {
		left = 0
	}
	return int(left / time.Second)
}

// loop is the countdown goroutine for one run. It exits after emitting
// finished or when the run is cancelled.
func (t *CountdownTimer) loop(run *timerRun) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-run.stop:
			return
		case <-ticker.C:
			now := t.clock()
			left := run.remaining(now)
			t.emit(run, TimerEvent{Type: TimerTick, TimeLeft: left})

			if now.Sub(run.startAt) >= run.duration {
				t.emit(run, TimerEvent{Type: TimerFinished, TimeLeft: 0})
				t.clearRun(run)
				return
			}
		}
	}
}

// emit delivers an event unless the run has been cancelled. Ticks are
// dropped when the consumer lags (the next tick supersedes them); finished
// waits for the consumer since it must not be lost.
func (t *CountdownTimer) emit(run *timerRun, ev TimerEvent) {
	select {
	case <-run.stop:
		return
	default:
	}

	if ev.Type == TimerFinished {
		select {
		case t.events <- ev:
		case <-run.stop:
		}
		return
	}

	select {
	case t.events <- ev:
	default:
	}
}

// clearRun detaches a naturally finished run so Stop has nothing to cancel.
func (t *CountdownTimer) clearRun(run *timerRun) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run == run {
		t.run = nil
	}
}

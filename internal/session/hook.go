package session

import (
	"sync"
)

// SessionTimer is the thin session-facing adapter over CountdownTimer. It
// tracks {TimeLeft, IsRunning} for display, invokes the finish callback
// exactly once, and tears the countdown down with the session so a late
// finished event can never fire against a session that no longer exists.
type SessionTimer struct {
	mu       sync.Mutex
	timer    *CountdownTimer
	timeLeft int
	running  bool
	onFinish func()
	listener func(TimerEvent)
	closed   bool
	done     chan struct{}
}

// NewSessionTimer creates the adapter and starts its event pump.
func NewSessionTimer() *SessionTimer {
	st := &SessionTimer{
		timer: NewCountdownTimer(),
		done:  make(chan struct{}),
	}
	go st.pump()
	return st
}

// pump consumes countdown events until Close.
func (st *SessionTimer) pump() {
	for {
		select {
		case <-st.done:
			return
		case ev := <-st.timer.Events():
			st.handle(ev)
		}
	}
}

func (st *SessionTimer) handle(ev TimerEvent) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}

	var finish func()
	switch ev.Type {
	case TimerTick:
		st.timeLeft = ev.TimeLeft
	case TimerFinished:
		st.timeLeft = 0
		st.running = false
		finish = st.onFinish
		st.onFinish = nil
	}
	listener := st.listener
	st.mu.Unlock()

	if listener != nil {
		listener(ev)
	}
	if finish != nil {
		finish()
	}
}

// StartTimer starts a countdown and stores the finish callback. The
// callback fires exactly once, on timer expiry; StopTimer cancels it.
func (st *SessionTimer) StartTimer(durationSeconds int, onFinish func()) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.timeLeft = durationSeconds
	st.running = true
	st.onFinish = onFinish
	st.mu.Unlock()

	st.timer.Start(durationSeconds)
}

// StopTimer cancels the countdown without invoking the finish callback.
func (st *SessionTimer) StopTimer() {
	st.mu.Lock()
	st.running = false
	st.onFinish = nil
	st.mu.Unlock()

	st.timer.Stop()
}

// ResetTimer stops the countdown and resets the displayed time without
// starting a new run.
func (st *SessionTimer) ResetTimer(durationSeconds int) {
	st.StopTimer()

	st.mu.Lock()
	st.timeLeft = durationSeconds
	st.mu.Unlock()
}

// QueryNow requests an immediate wall-clock resync tick (page regained
// visibility).
func (st *SessionTimer) QueryNow() {
	st.timer.QueryNow()
}

// SetListener registers a callback observing every timer event, used to
// stream ticks to the client. The listener runs on the pump goroutine and
// must not block.
func (st *SessionTimer) SetListener(fn func(TimerEvent)) {
	st.mu.Lock()
	st.listener = fn
	st.mu.Unlock()
}

// TimeLeft returns the last displayed whole seconds remaining.
func (st *SessionTimer) TimeLeft() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.timeLeft
}

// IsRunning reports whether a countdown is active.
func (st *SessionTimer) IsRunning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.running
}

// Close tears the adapter down: the countdown is stopped and the pump
// exits. The finish callback is never invoked after Close.
func (st *SessionTimer) Close() {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true
	st.running = false
	st.onFinish = nil
	st.listener = nil
	st.mu.Unlock()

	st.timer.Stop()
	close(st.done)
}

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testInterval keeps the countdown goroutine spinning fast enough that
// tests observe events promptly without waiting real seconds.
const testInterval = 2 * time.Millisecond

func newTestTimer(clock *fakeClock) *CountdownTimer {
	t := NewCountdownTimer()
	t.clock = clock.Now
	t.interval = testInterval
	return t
}

// waitEvent reads the next event or fails the test.
func waitEvent(t *testing.T, timer *CountdownTimer) TimerEvent {
	t.Helper()
	select {
	case ev := <-timer.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer event")
		return TimerEvent{}
	}
}

func TestCountdownTimerWallClockDeadline(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	defer timer.Stop()

	timer.Start(5)

	// Simulate 5s of wall-clock advance without living through 5 ticks.
	// The very next tick must detect the deadline from the clock delta.
	clock.Advance(5 * time.Second)

	var finished int
	var lastTick TimerEvent
	for finished == 0 {
		ev := waitEvent(t, timer)
		switch ev.Type {
		case TimerTick:
			lastTick = ev
		case TimerFinished:
			finished++
		}
	}

	assert.Equal(t, 0, lastTick.TimeLeft)
	assert.Equal(t, 1, finished)

	// The run is over: no further events may arrive.
	select {
	case ev := <-timer.Events():
		t.Fatalf("unexpected event after finished: %+v", ev)
	case <-time.After(20 * testInterval):
	}
}

func TestCountdownTimerNeverFinishesEarly(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	defer timer.Stop()

	timer.Start(5)

	// 1ms short of the deadline: remaining floors to 0 but the run is not
	// finished yet.
	clock.Advance(5*time.Second - time.Millisecond)

	// Remaining floors to 0 once inside the final second, but finished
	// may not fire until the deadline itself.
	for sawZero := false; !sawZero; {
		ev := waitEvent(t, timer)
		require.Equal(t, TimerTick, ev.Type, "finished fired before the true deadline")
		sawZero = ev.TimeLeft == 0
	}
	for i := 0; i < 5; i++ {
		ev := waitEvent(t, timer)
		require.Equal(t, TimerTick, ev.Type, "finished fired before the true deadline")
	}

	clock.Advance(time.Millisecond)

	for {
		if ev := waitEvent(t, timer); ev.Type == TimerFinished {
			break
		}
	}
}

func TestCountdownTimerQueryNowResync(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	// A huge interval keeps scheduled ticks out of the way, so only
	// QueryNow can produce events.
	timer.interval = time.Hour
	defer timer.Stop()

	timer.Start(120)
	clock.Advance(30 * time.Second)

	// Two resyncs in quick succession must agree: both derive from the
	// wall clock, so nothing is double-counted.
	timer.QueryNow()
	timer.QueryNow()

	ev := waitEvent(t, timer)
	require.Equal(t, TimerTick, ev.Type)
	assert.Equal(t, 90, ev.TimeLeft)

	ev = waitEvent(t, timer)
	require.Equal(t, TimerTick, ev.Type)
	assert.Equal(t, 90, ev.TimeLeft)
}

func TestCountdownTimerStartReplacesPriorRun(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	timer.interval = time.Hour
	defer timer.Stop()

	timer.Start(100)
	timer.Start(50)

	timer.QueryNow()
	ev := waitEvent(t, timer)
	require.Equal(t, TimerTick, ev.Type)
	assert.Equal(t, 50, ev.TimeLeft, "replaced run must report the new duration")
}

func TestCountdownTimerStopIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	timer.interval = time.Hour

	timer.Start(10)
	timer.Stop()
	timer.Stop()

	// A stopped timer is silent even past its deadline.
	clock.Advance(time.Minute)
	timer.QueryNow()

	select {
	case ev := <-timer.Events():
		t.Fatalf("unexpected event after stop: %+v", ev)
	case <-time.After(20 * testInterval):
	}
}

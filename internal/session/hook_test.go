package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionTimer(clock *fakeClock) *SessionTimer {
	st := NewSessionTimer()
	st.timer.clock = clock.Now
	st.timer.interval = testInterval
	return st
}

func TestSessionTimerFinishCallbackExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	st := newTestSessionTimer(clock)
	defer st.Close()

	var calls atomic.Int32
	st.StartTimer(3, func() { calls.Add(1) })

	require.True(t, st.IsRunning())
	assert.Equal(t, 3, st.TimeLeft())

	clock.Advance(3 * time.Second)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, testInterval)
	assert.False(t, st.IsRunning())
	assert.Equal(t, 0, st.TimeLeft())

	// Nothing else may fire the callback again.
	time.Sleep(20 * testInterval)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionTimerStopCancelsCallback(t *testing.T) {
	clock := newFakeClock()
	st := newTestSessionTimer(clock)
	defer st.Close()

	var calls atomic.Int32
	st.StartTimer(2, func() { calls.Add(1) })
	st.StopTimer()

	clock.Advance(time.Minute)
	time.Sleep(20 * testInterval)

	assert.False(t, st.IsRunning())
	assert.Equal(t, int32(0), calls.Load(), "StopTimer must not invoke onFinish")
}

func TestSessionTimerResetDisplaysWithoutRunning(t *testing.T) {
	clock := newFakeClock()
	st := newTestSessionTimer(clock)
	defer st.Close()

	st.StartTimer(30, nil)
	st.ResetTimer(120)

	assert.False(t, st.IsRunning())
	assert.Equal(t, 120, st.TimeLeft())
}

func TestSessionTimerTickUpdatesTimeLeft(t *testing.T) {
	clock := newFakeClock()
	st := newTestSessionTimer(clock)
	defer st.Close()

	st.StartTimer(60, nil)
	clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool { return st.TimeLeft() == 50 }, 2*time.Second, testInterval)
	assert.True(t, st.IsRunning())
}

func TestSessionTimerCloseSilencesCallback(t *testing.T) {
	clock := newFakeClock()
	st := newTestSessionTimer(clock)

	var calls atomic.Int32
	st.StartTimer(1, func() { calls.Add(1) })
	st.Close()

	clock.Advance(time.Minute)
	time.Sleep(20 * testInterval)

	assert.Equal(t, int32(0), calls.Load(), "a torn-down hook must never fire onFinish")
}

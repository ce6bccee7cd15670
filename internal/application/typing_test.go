package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []bool
}

func (r *signalRecorder) send(_ context.Context, typing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, typing)
	return nil
}

func (r *signalRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.signals...)
}

func countStops(signals []bool) int {
	stops := 0
	for _, typing := range signals {
		if !typing {
			stops++
		}
	}
	return stops
}

func TestTypingIndicatorIdleSendsExactlyOneStop(t *testing.T) {
	t.Parallel()

	recorder := &signalRecorder{}
	indicator := NewTypingIndicator(recorder.send, 20*time.Millisecond, 90*time.Millisecond, zaptest.NewLogger(t))

	indicator.Update("h")
	require.Eventually(t, func() bool { return !indicator.Active() }, waitFor, tick)
	indicator.Flush()

	signals := recorder.snapshot()
	require.GreaterOrEqual(t, len(signals), 3, "start, keep-alives, stop")
	assert.True(t, signals[0])
	assert.False(t, signals[len(signals)-1])
	assert.Equal(t, 1, countStops(signals))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, signals, recorder.snapshot(), "keep-alive must be cancelled")
}

func TestTypingIndicatorKeystrokesExtendIdleWindow(t *testing.T) {
	t.Parallel()

	recorder := &signalRecorder{}
	indicator := NewTypingIndicator(recorder.send, time.Hour, 60*time.Millisecond, nil)

	for range 4 {
		indicator.Update("hey")
		time.Sleep(30 * time.Millisecond)
	}
	indicator.Flush()
	assert.True(t, indicator.Active())
	assert.Equal(t, []bool{true}, recorder.snapshot())

	require.Eventually(t, func() bool { return !indicator.Active() }, waitFor, tick)
	indicator.Flush()
	assert.Equal(t, []bool{true, false}, recorder.snapshot())
}

func TestTypingIndicatorClearedInputStopsImmediately(t *testing.T) {
	t.Parallel()

	recorder := &signalRecorder{}
	indicator := NewTypingIndicator(recorder.send, time.Hour, time.Hour, nil)

	indicator.Update("hello")
	indicator.Update("  ")
	indicator.Flush()

	assert.False(t, indicator.Active())
	assert.Equal(t, []bool{true, false}, recorder.snapshot())
}

func TestTypingIndicatorEmptyInputWhileIdleSendsNothing(t *testing.T) {
	t.Parallel()

	recorder := &signalRecorder{}
	indicator := NewTypingIndicator(recorder.send, time.Hour, time.Hour, nil)

	indicator.Update("")
	indicator.Stop()
	indicator.Flush()

	assert.Empty(t, recorder.snapshot())
}

func TestTypingIndicatorSlowSenderDoesNotBlockUpdates(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	recorder := &signalRecorder{}
	slow := func(ctx context.Context, typing bool) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return recorder.send(ctx, typing)
	}
	indicator := NewTypingIndicator(slow, time.Hour, time.Hour, nil)

	returned := make(chan struct{})
	go func() {
		indicator.Update("hi")
		indicator.Update("")
		indicator.Update("hi again")
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("composer updates blocked on the typing sender")
	}
	assert.True(t, indicator.Active())

	close(release)
	indicator.Stop()
	indicator.Flush()
	assert.Equal(t, []bool{true, false, true, false}, recorder.snapshot())
}

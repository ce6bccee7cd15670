package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/domain"
)

// ScrollTarget is the view showing the room. ScrollToLatest reports whether
// the message is now visible.
type ScrollTarget interface {
	ScrollToLatest(id domain.MessageID) bool
}

var DefaultScrollDelays = []time.Duration{
	0,
	50 * time.Millisecond,
	150 * time.Millisecond,
	300 * time.Millisecond,
	600 * time.Millisecond,
}

// ScrollFollower keeps the newest message in view. Layout may lag behind
// content, so each request retries at increasing delays until the target
// confirms. A new request supersedes the previous one.
type ScrollFollower struct {
	target ScrollTarget
	delays []time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewScrollFollower(target ScrollTarget, delays []time.Duration) *ScrollFollower {
	if len(delays) == 0 {
		delays = DefaultScrollDelays
	}
	return &ScrollFollower{target: target, delays: delays}
}

// Follow starts presenting msgs' newest message. The returned channel
// yields whether the target confirmed, then closes.
func (f *ScrollFollower) Follow(ctx context.Context, msgs []domain.ChatMessage) <-chan bool {
	done := make(chan bool, 1)
	if len(msgs) == 0 {
		done <- false
		close(done)
		return done
	}
	latest := msgs[len(msgs)-1].ID

	attemptCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		for _, delay := range f.delays {
			timer := time.NewTimer(delay)
			select {
			case <-attemptCtx.Done():
				timer.Stop()
				done <- false
				return
			case <-timer.C:
			}
			if f.target.ScrollToLatest(latest) {
				done <- true
				return
			}
		}
		done <- false
	}()

	return done
}

func (f *ScrollFollower) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

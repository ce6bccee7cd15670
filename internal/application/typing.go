package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTypingKeepAlive = 3 * time.Second
	DefaultTypingIdle      = 3 * time.Second
	typingSendTimeout      = 5 * time.Second
)

// TypingSender delivers one typing signal to the room.
type TypingSender func(ctx context.Context, typing bool) error

// TypingIndicator drives the local user's typing signal: one start on the
// first keystroke, a keep-alive while typing continues and exactly one stop
// once input goes idle or is cleared.
type TypingIndicator struct {
	mu        sync.Mutex
	send      TypingSender
	keepAlive time.Duration
	idle      time.Duration
	logger    *zap.Logger

	active    bool
	session   int
	idleSeq   int
	keepTimer *time.Timer
	idleTimer *time.Timer

	pending  []bool
	draining bool
	drained  *sync.Cond
}

func NewTypingIndicator(send TypingSender, keepAlive, idle time.Duration, logger *zap.Logger) *TypingIndicator {
	if keepAlive <= 0 {
		keepAlive = DefaultTypingKeepAlive
	}
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	indicator := &TypingIndicator{send: send, keepAlive: keepAlive, idle: idle, logger: logger}
	indicator.drained = sync.NewCond(&indicator.mu)
	return indicator
}

// Update reports the current composer content.
func (i *TypingIndicator) Update(content string) {
	if strings.TrimSpace(content) == "" {
		i.Stop()
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.active {
		i.active = true
		i.session++
		i.signal(true)
		i.scheduleKeepAlive(i.session)
	}

	if i.idleTimer != nil {
		i.idleTimer.Stop()
	}
	i.idleSeq++
	session, seq := i.session, i.idleSeq
	i.idleTimer = time.AfterFunc(i.idle, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if i.active && i.session == session && i.idleSeq == seq {
			i.stopLocked()
		}
	})
}

// Stop sends a stop signal if typing is active. It is a no-op otherwise.
func (i *TypingIndicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopLocked()
}

// Flush blocks until every queued signal has been delivered.
func (i *TypingIndicator) Flush() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for i.draining {
		i.drained.Wait()
	}
}

func (i *TypingIndicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

func (i *TypingIndicator) stopLocked() {
	if !i.active {
		return
	}

	i.active = false
	if i.keepTimer != nil {
		i.keepTimer.Stop()
		i.keepTimer = nil
	}
	if i.idleTimer != nil {
		i.idleTimer.Stop()
		i.idleTimer = nil
	}
	i.signal(false)
}

func (i *TypingIndicator) scheduleKeepAlive(session int) {
	i.keepTimer = time.AfterFunc(i.keepAlive, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if !i.active || i.session != session {
			return
		}
		i.signal(true)
		i.scheduleKeepAlive(session)
	})
}

// signal queues one signal and must run with mu held. A single worker
// delivers the queue in order off the caller's goroutine, so a keep-alive
// never follows its stop.
func (i *TypingIndicator) signal(typing bool) {
	i.pending = append(i.pending, typing)
	if !i.draining {
		i.draining = true
		go i.drain()
	}
}

func (i *TypingIndicator) drain() {
	i.mu.Lock()
	for len(i.pending) > 0 {
		typing := i.pending[0]
		i.pending = i.pending[1:]
		i.mu.Unlock()
		i.deliver(typing)
		i.mu.Lock()
	}
	i.draining = false
	i.drained.Broadcast()
	i.mu.Unlock()
}

func (i *TypingIndicator) deliver(typing bool) {
	ctx, cancel := context.WithTimeout(context.Background(), typingSendTimeout)
	defer cancel()

	if err := i.send(ctx, typing); err != nil {
		i.logger.Debug("typing signal failed", zap.Bool("typing", typing), zap.Error(err))
	}
}

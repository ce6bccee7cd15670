package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"github.com/teris-io/shortid"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval     = 10 * time.Second
	DefaultReconnectDelay   = 5 * time.Second
	DefaultWatchdogInterval = 60 * time.Second
	DefaultStaleAfter       = 120 * time.Second

	messagesSchema = "public"
	messagesTable  = "messages"
)

type TrackerConfig struct {
	PollInterval     time.Duration
	ReconnectDelay   time.Duration
	WatchdogInterval time.Duration
	StaleAfter       time.Duration
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = DefaultWatchdogInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	return c
}

// UnreadTracker keeps the global unread count for the signed-in user. A push
// subscription on the message table drives recomputes; when it fails the
// tracker polls and retries the subscription after a fixed delay.
type UnreadTracker struct {
	repo      ports.ChatRepository
	transport ports.RealtimeTransport
	clock     ports.Clock
	cfg       TrackerConfig
	logger    *zap.Logger

	identity chan domain.UserID
	refresh  chan struct{}
	updates  chan UnreadSnapshot

	mu       sync.RWMutex
	snapshot UnreadSnapshot
}

func NewUnreadTracker(repo ports.ChatRepository, transport ports.RealtimeTransport, clock ports.Clock, cfg TrackerConfig, logger *zap.Logger) *UnreadTracker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &UnreadTracker{
		repo:      repo,
		transport: transport,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		identity:  make(chan domain.UserID),
		refresh:   make(chan struct{}, 1),
		updates:   make(chan UnreadSnapshot, 1),
	}
}

// SetIdentity switches the tracked user. An empty id tears everything down.
func (t *UnreadTracker) SetIdentity(ctx context.Context, user domain.UserID) error {
	select {
	case t.identity <- user:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestRefresh asks for a recompute, e.g. after messages were marked read.
func (t *UnreadTracker) RequestRefresh() {
	select {
	case t.refresh <- struct{}{}:
	default:
	}
}

// Updates delivers the latest snapshot. Intermediate values may be skipped.
func (t *UnreadTracker) Updates() <-chan UnreadSnapshot {
	return t.updates
}

func (t *UnreadTracker) Snapshot() UnreadSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

type recomputeResult struct {
	generation int
	count      int
	rooms      int
	err        error
}

type subscribeResult struct {
	attempt int
	channel ports.RealtimeChannel
	err     error
}

type trackerLoop struct {
	*UnreadTracker
	ctx context.Context

	user       domain.UserID
	generation int
	attempt    int
	since      time.Time
	health     domain.ConnectionHealth
	count      int
	rooms      int
	recomputed time.Time

	channel ports.RealtimeChannel
	events  <-chan ports.RealtimeEvent

	// wantPoll records that polling was requested; the ticker only runs
	// once a count has confirmed at least one membership.
	wantPoll  bool
	poll      *time.Ticker
	reconnect *time.Timer
	watchdog  *time.Ticker

	computing bool
	dirty     bool

	results    chan recomputeResult
	subscribed chan subscribeResult
}

// Run owns all tracker state until ctx is done.
func (t *UnreadTracker) Run(ctx context.Context) error {
	loop := &trackerLoop{
		UnreadTracker: t,
		ctx:           ctx,
		rooms:         -1,
		results:       make(chan recomputeResult, 1),
		subscribed:    make(chan subscribeResult, 1),
	}
	defer loop.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case user := <-t.identity:
			loop.switchIdentity(user)
		case <-t.refresh:
			loop.recompute()
		case res := <-loop.results:
			loop.applyResult(res)
		case res := <-loop.subscribed:
			loop.attach(res)
		case event, ok := <-loop.events:
			if !ok {
				loop.channelLost()
				continue
			}
			loop.handleEvent(event)
		case <-tickerC(loop.poll):
			loop.recompute()
		case <-timerC(loop.reconnect):
			loop.reconnect = nil
			loop.resubscribe()
		case <-tickerC(loop.watchdog):
			loop.checkStale()
		}
	}
}

func (l *trackerLoop) switchIdentity(user domain.UserID) {
	if user == l.user {
		return
	}

	l.teardown()
	l.user = user
	if user == "" {
		return
	}

	l.health = domain.HealthConnecting
	l.since = l.clock.Now()
	l.watchdog = time.NewTicker(l.cfg.WatchdogInterval)
	l.subscribe()
	l.recompute()
	l.publish()
}

// teardown returns the loop to Idle and invalidates in-flight work.
func (l *trackerLoop) teardown() {
	l.generation++
	l.attempt++
	l.closeChannel()
	l.wantPoll = false
	l.stopPolling()
	if l.reconnect != nil {
		l.reconnect.Stop()
		l.reconnect = nil
	}
	if l.watchdog != nil {
		l.watchdog.Stop()
		l.watchdog = nil
	}

	l.user = ""
	l.health = domain.HealthIdle
	l.count = 0
	l.rooms = -1
	l.recomputed = time.Time{}
	l.since = time.Time{}
	l.computing = false
	l.dirty = false
	l.publish()
}

func (l *trackerLoop) subscribe() {
	attempt := l.attempt
	spec := ports.ChannelSpec{
		Topic: unreadTopic(l.user),
		Changes: []ports.ChangeFilter{{
			Event:  ports.ChangeAll,
			Schema: messagesSchema,
			Table:  messagesTable,
		}},
	}

	go func() {
		channel, err := l.transport.Subscribe(l.ctx, spec)
		select {
		case l.subscribed <- subscribeResult{attempt: attempt, channel: channel, err: err}:
		case <-l.ctx.Done():
			if channel != nil {
				_ = channel.Close()
			}
		}
	}()
}

func (l *trackerLoop) attach(res subscribeResult) {
	if res.attempt != l.attempt {
		if res.channel != nil {
			_ = res.channel.Close()
		}
		return
	}
	if res.err != nil {
		l.logger.Warn("unread subscription failed", zap.Error(res.err))
		l.degrade()
		return
	}

	l.channel = res.channel
	l.events = res.channel.Events()
}

func (l *trackerLoop) handleEvent(event ports.RealtimeEvent) {
	switch {
	case event.Change != nil:
		l.recompute()
	case event.Status == ports.StatusSubscribed:
		l.health = domain.HealthLive
		l.wantPoll = false
		l.stopPolling()
		if l.reconnect != nil {
			l.reconnect.Stop()
			l.reconnect = nil
		}
		l.logger.Debug("unread subscription live")
		l.publish()
	case event.Status == ports.StatusChannelError, event.Status == ports.StatusTimedOut:
		l.logger.Warn("unread subscription degraded", zap.String("status", string(event.Status)), zap.Error(event.Err))
		l.degrade()
	}
}

func (l *trackerLoop) channelLost() {
	l.channel = nil
	l.events = nil
	if l.user == "" {
		return
	}
	l.degrade()
}

// degrade switches to polling and schedules one reconnect attempt.
func (l *trackerLoop) degrade() {
	l.health = domain.HealthPolling
	l.startPolling()
	if l.reconnect == nil {
		l.reconnect = time.NewTimer(l.cfg.ReconnectDelay)
	}
	l.publish()
}

func (l *trackerLoop) resubscribe() {
	if l.user == "" {
		return
	}

	l.health = domain.HealthReconnecting
	l.closeChannel()
	l.attempt++
	l.subscribe()
	l.publish()
}

func (l *trackerLoop) checkStale() {
	if l.user == "" {
		return
	}
	last := l.recomputed
	if last.IsZero() {
		last = l.since
	}
	age := l.clock.Now().Sub(last)
	if age <= l.cfg.StaleAfter {
		return
	}

	l.logger.Warn("unread count stale, forcing reconnect", zap.Duration("age", age))
	l.startPolling()
	if l.reconnect != nil {
		l.reconnect.Stop()
		l.reconnect = nil
	}
	l.resubscribe()
}

func (l *trackerLoop) recompute() {
	if l.user == "" {
		return
	}
	if l.computing {
		l.dirty = true
		return
	}

	l.computing = true
	generation := l.generation
	user := l.user
	go func() {
		count, rooms, err := l.countUnread(l.ctx, user)
		select {
		case l.results <- recomputeResult{generation: generation, count: count, rooms: rooms, err: err}:
		case <-l.ctx.Done():
		}
	}()
}

func (l *trackerLoop) countUnread(ctx context.Context, user domain.UserID) (int, int, error) {
	rooms, err := l.repo.ListRoomIDs(ctx, user)
	if err != nil {
		return 0, 0, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return 0, 0, nil
	}

	count, err := l.repo.CountUnread(ctx, user, rooms)
	if err != nil {
		return 0, len(rooms), fmt.Errorf("count unread: %w", err)
	}

	return count, len(rooms), nil
}

func (l *trackerLoop) applyResult(res recomputeResult) {
	if res.generation != l.generation {
		return
	}
	l.computing = false

	if res.err != nil {
		l.logger.Warn("unread recompute failed", zap.Error(res.err))
	} else {
		l.count = res.count
		l.rooms = res.rooms
		l.recomputed = l.clock.Now()
		if res.rooms == 0 {
			l.stopPolling()
		} else if l.wantPoll {
			l.startPolling()
		}
		l.publish()
	}

	if l.dirty {
		l.dirty = false
		l.recompute()
	}
}

func (l *trackerLoop) startPolling() {
	l.wantPoll = true
	if l.poll != nil || l.rooms <= 0 {
		return
	}
	l.poll = time.NewTicker(l.cfg.PollInterval)
}

func (l *trackerLoop) stopPolling() {
	if l.poll == nil {
		return
	}
	l.poll.Stop()
	l.poll = nil
}

func (l *trackerLoop) closeChannel() {
	if l.channel == nil {
		return
	}
	if err := l.channel.Close(); err != nil {
		l.logger.Debug("close unread subscription", zap.Error(err))
	}
	l.channel = nil
	l.events = nil
}

func (l *trackerLoop) publish() {
	snapshot := UnreadSnapshot{
		Count:        l.count,
		Rooms:        max(l.rooms, 0),
		Health:       l.health,
		RecomputedAt: l.recomputed,
	}

	l.mu.Lock()
	l.snapshot = snapshot
	l.mu.Unlock()

	select {
	case <-l.updates:
	default:
	}
	select {
	case l.updates <- snapshot:
	default:
	}
}

func unreadTopic(user domain.UserID) string {
	suffix, err := shortid.Generate()
	if err != nil {
		suffix = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("global-unread-%s-%s", user, suffix)
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// Package pgnotify is a realtime transport over Postgres LISTEN/NOTIFY. Row
// changes arrive from a trigger that publishes on ChangesChannel; broadcasts
// are relayed through pg_notify on BroadcastChannel.
package pgnotify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/ports"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	ChangesChannel   = "coach_changes"
	BroadcastChannel = "coach_broadcast"

	// Postgres rejects NOTIFY payloads of 8000 bytes or more.
	maxNotifyPayload = 7999

	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
	eventBuffer  = 64
)

var ErrClosed = errors.New("realtime transport closed")

// TriggerSQL installs the trigger that publishes message row changes.
const TriggerSQL = `
CREATE OR REPLACE FUNCTION coach_notify_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ChangesChannel + `', json_build_object(
		'schema', TG_TABLE_SCHEMA,
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
		'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS coach_messages_notify ON messages;
CREATE TRIGGER coach_messages_notify
	AFTER INSERT OR UPDATE OR DELETE ON messages
	FOR EACH ROW EXECUTE FUNCTION coach_notify_change();
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type changeEnvelope struct {
	Schema    string          `json:"schema"`
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

type broadcastEnvelope struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Transport fans notifications out to subscribed channels.
type Transport struct {
	db       execer
	listener *pq.Listener
	origin   string
	logger   *zap.Logger

	mu       sync.RWMutex
	channels map[*channel]struct{}
	healthy  bool

	done      chan struct{}
	closeOnce sync.Once
	finished  chan struct{}
}

var _ ports.RealtimeTransport = (*Transport)(nil)

// NewTransport listens on both notification channels using dsn. db is used
// to publish broadcasts.
func NewTransport(dsn string, db *sql.DB, logger *zap.Logger) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := newTransport(db, logger)
	t.listener = pq.NewListener(dsn, minReconnect, maxReconnect, t.listenerEvent)
	for _, name := range []string{ChangesChannel, BroadcastChannel} {
		if err := t.listener.Listen(name); err != nil {
			_ = t.listener.Close()
			return nil, fmt.Errorf("listen %s: %w", name, err)
		}
	}

	t.mu.Lock()
	t.healthy = true
	t.mu.Unlock()

	go t.run()
	return t, nil
}

func newTransport(db execer, logger *zap.Logger) *Transport {
	return &Transport{
		db:       db,
		origin:   uuid.NewString(),
		logger:   logger,
		channels: map[*channel]struct{}{},
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// InstallTrigger creates or replaces the change trigger on the messages table.
func InstallTrigger(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, TriggerSQL); err != nil {
		return fmt.Errorf("install change trigger: %w", err)
	}
	return nil
}

func (t *Transport) Subscribe(ctx context.Context, spec ports.ChannelSpec) (ports.RealtimeChannel, error) {
	if spec.Topic == "" {
		return nil, errors.New("channel topic is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case <-t.done:
		return nil, ErrClosed
	default:
	}

	ch := &channel{
		transport: t,
		spec:      spec,
		events:    make(chan ports.RealtimeEvent, eventBuffer),
		done:      make(chan struct{}),
	}

	t.mu.Lock()
	t.channels[ch] = struct{}{}
	healthy := t.healthy
	t.mu.Unlock()

	if healthy {
		ch.deliver(ports.RealtimeEvent{Status: ports.StatusSubscribed})
	} else {
		ch.deliver(ports.RealtimeEvent{Status: ports.StatusChannelError, Err: errors.New("listener disconnected")})
	}
	return ch, nil
}

// Close stops listening and ends every channel.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if t.listener != nil {
			err = t.listener.Close()
			<-t.finished
		}
		t.failAll(ports.StatusClosed, nil)
	})
	return err
}

func (t *Transport) run() {
	defer close(t.finished)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-t.done:
			return
		case n, ok := <-t.listener.Notify:
			if !ok {
				return
			}
			// nil follows a reconnect; notifications may have been lost.
			if n == nil {
				continue
			}
			t.route(n)
		case <-ping.C:
			go func() {
				if err := t.listener.Ping(); err != nil {
					t.logger.Warn("listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (t *Transport) listenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		t.logger.Warn("listener disconnected", zap.Error(err))
		t.mu.Lock()
		t.healthy = false
		t.mu.Unlock()
		if err == nil {
			err = errors.New("listener disconnected")
		}
		t.failAll(ports.StatusChannelError, err)
	case pq.ListenerEventConnected, pq.ListenerEventReconnected:
		t.mu.Lock()
		t.healthy = true
		t.mu.Unlock()
		t.logger.Debug("listener connected")
	}
}

func (t *Transport) route(n *pq.Notification) {
	switch n.Channel {
	case ChangesChannel:
		var env changeEnvelope
		if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
			t.logger.Debug("ignore malformed change notification", zap.Error(err))
			return
		}
		t.each(func(ch *channel) { ch.offerChange(env) })
	case BroadcastChannel:
		var env broadcastEnvelope
		if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
			t.logger.Debug("ignore malformed broadcast notification", zap.Error(err))
			return
		}
		t.each(func(ch *channel) { ch.offerBroadcast(env, t.origin) })
	}
}

func (t *Transport) each(fn func(*channel)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.channels {
		fn(ch)
	}
}

func (t *Transport) failAll(status ports.SubscriptionStatus, err error) {
	t.mu.Lock()
	channels := make([]*channel, 0, len(t.channels))
	for ch := range t.channels {
		channels = append(channels, ch)
	}
	t.mu.Unlock()

	for _, ch := range channels {
		ch.finish(ports.RealtimeEvent{Status: status, Err: err})
	}
}

func (t *Transport) remove(ch *channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[ch]; !ok {
		return false
	}
	delete(t.channels, ch)
	return true
}

func (t *Transport) publish(ctx context.Context, env broadcastEnvelope) error {
	env.Origin = t.origin
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	if len(body) > maxNotifyPayload {
		return fmt.Errorf("broadcast payload too large: %d bytes", len(body))
	}
	if _, err := t.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", BroadcastChannel, string(body)); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

type sentBroadcast struct {
	Event   string
	Payload json.RawMessage
}

type fakeChannel struct {
	spec ports.ChannelSpec

	mu         sync.Mutex
	events     chan ports.RealtimeEvent
	closed     bool
	broadcasts []sentBroadcast
}

func newFakeChannel(spec ports.ChannelSpec) *fakeChannel {
	return &fakeChannel{spec: spec, events: make(chan ports.RealtimeEvent, 64)}
}

func (c *fakeChannel) Topic() string {
	return c.spec.Topic
}

func (c *fakeChannel) Events() <-chan ports.RealtimeEvent {
	return c.events
}

func (c *fakeChannel) Broadcast(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	c.broadcasts = append(c.broadcasts, sentBroadcast{Event: event, Payload: data})
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *fakeChannel) emit(event ports.RealtimeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.events <- event
	}
}

func (c *fakeChannel) emitStatus(status ports.SubscriptionStatus) {
	c.emit(ports.RealtimeEvent{Status: status})
}

func (c *fakeChannel) emitChange(t *testing.T, changeType ports.ChangeType, msg domain.ChatMessage) {
	t.Helper()
	record, err := json.Marshal(msg)
	require.NoError(t, err)
	c.emit(ports.RealtimeEvent{Change: &ports.ChangeEvent{Type: changeType, Schema: "public", Table: "messages", Record: record}})
}

func (c *fakeChannel) emitBroadcast(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	c.emit(ports.RealtimeEvent{Broadcast: &ports.BroadcastEvent{Event: event, Payload: data}})
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) sent() []sentBroadcast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentBroadcast(nil), c.broadcasts...)
}

type fakeTransport struct {
	mu       sync.Mutex
	channels []*fakeChannel
	fail     error
}

func (f *fakeTransport) Subscribe(_ context.Context, spec ports.ChannelSpec) (ports.RealtimeChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}

	channel := newFakeChannel(spec)
	f.channels = append(f.channels, channel)
	return channel, nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *fakeTransport) channel(i int) *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[i]
}

type fakeChatRepo struct {
	mu         sync.Mutex
	rooms      []domain.RoomID
	unread     int
	history    map[domain.RoomID][]domain.ChatMessage
	listCalls  int
	countErr   error
	gate       chan struct{}
	entered    chan struct{}
	inserted   []domain.NewMessage
	nextID     domain.MessageID
	markedRead []domain.RoomID
}

func (r *fakeChatRepo) ListRoomIDs(ctx context.Context, _ domain.UserID) ([]domain.RoomID, error) {
	r.mu.Lock()
	r.listCalls++
	gate, entered := r.gate, r.entered
	rooms := append([]domain.RoomID(nil), r.rooms...)
	r.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rooms, nil
}

func (r *fakeChatRepo) CountUnread(context.Context, domain.UserID, []domain.RoomID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread, r.countErr
}

func (r *fakeChatRepo) ListMessages(_ context.Context, room domain.RoomID) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ChatMessage(nil), r.history[room]...), nil
}

func (r *fakeChatRepo) InsertMessage(_ context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, msg)
	r.nextID++
	return domain.ChatMessage{
		ID:        100 + r.nextID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}, nil
}

func (r *fakeChatRepo) MarkRoomRead(_ context.Context, room domain.RoomID, _ domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedRead = append(r.markedRead, room)
	return nil
}

func (r *fakeChatRepo) set(rooms []domain.RoomID, unread int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = rooms
	r.unread = unread
}

func (r *fakeChatRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type refreshCounter struct {
	mu    sync.Mutex
	calls int
}

func (r *refreshCounter) RequestRefresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

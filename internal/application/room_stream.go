package application

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

const (
	EventNewMessage = "new_message"
	EventTyping     = "typing"

	DefaultTypingTTL = 3 * time.Second
)

// UnreadRefresher is notified after messages are marked read.
type UnreadRefresher interface {
	RequestRefresh()
}

type RoomStreamOptions struct {
	Room      domain.RoomID
	Self      domain.UserID
	Repo      ports.ChatRepository
	Transport ports.RealtimeTransport
	Unread    UnreadRefresher
	Clock     ports.Clock
	Logger    *zap.Logger

	TypingTTL       time.Duration
	TypingKeepAlive time.Duration
	TypingIdle      time.Duration
}

// RoomStream is the live view of one room: history merged with realtime
// inserts and broadcasts, deduplicated by id and ordered by creation time.
type RoomStream struct {
	room      domain.RoomID
	self      domain.UserID
	repo      ports.ChatRepository
	transport ports.RealtimeTransport
	unread    UnreadRefresher
	clock     ports.Clock
	logger    *zap.Logger
	typingTTL time.Duration

	indicator *TypingIndicator
	changes   chan []domain.ChatMessage

	mu      sync.Mutex
	initial []domain.ChatMessage
	history []domain.ChatMessage
	live    []domain.ChatMessage
	merged  []domain.ChatMessage
	typing  map[domain.UserID]time.Time
	channel ports.RealtimeChannel
	done    chan struct{}
}

func NewRoomStream(opts RoomStreamOptions) *RoomStream {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TypingTTL <= 0 {
		opts.TypingTTL = DefaultTypingTTL
	}

	stream := &RoomStream{
		room:      opts.Room,
		self:      opts.Self,
		repo:      opts.Repo,
		transport: opts.Transport,
		unread:    opts.Unread,
		clock:     opts.Clock,
		logger:    opts.Logger.With(zap.Int64("room", int64(opts.Room))),
		typingTTL: opts.TypingTTL,
		changes:   make(chan []domain.ChatMessage, 1),
		typing:    map[domain.UserID]time.Time{},
	}
	stream.indicator = NewTypingIndicator(stream.sendTyping, opts.TypingKeepAlive, opts.TypingIdle, stream.logger)

	return stream
}

func RoomTopic(room domain.RoomID) string {
	return fmt.Sprintf("room:%d", room)
}

// Open loads history and subscribes to the room. initial holds messages the
// caller already has, e.g. from a notification payload.
func (s *RoomStream) Open(ctx context.Context, initial []domain.ChatMessage) error {
	if s.room == 0 {
		return domain.ErrNoRoom
	}

	history, err := s.repo.ListMessages(ctx, s.room)
	if err != nil {
		return fmt.Errorf("load room history: %w", err)
	}

	channel, err := s.transport.Subscribe(ctx, ports.ChannelSpec{
		Topic: RoomTopic(s.room),
		Changes: []ports.ChangeFilter{
			{Event: ports.ChangeInsert, Schema: messagesSchema, Table: messagesTable, Filter: fmt.Sprintf("room_id=eq.%d", s.room)},
			{Event: ports.ChangeUpdate, Schema: messagesSchema, Table: messagesTable, Filter: fmt.Sprintf("room_id=eq.%d", s.room)},
		},
		Broadcasts: []string{EventNewMessage, EventTyping},
	})
	if err != nil {
		return fmt.Errorf("subscribe to room: %w", err)
	}

	s.mu.Lock()
	s.initial = slices.Clone(initial)
	s.history = history
	s.channel = channel
	s.done = make(chan struct{})
	s.remergeLocked()
	s.mu.Unlock()

	go s.consume(ctx, channel)

	return nil
}

// Messages returns the current merged sequence.
func (s *RoomStream) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.merged)
}

// Changes delivers the merged sequence after every change. Only the latest
// value is kept.
func (s *RoomStream) Changes() <-chan []domain.ChatMessage {
	return s.changes
}

// TypingUsers lists other users whose typing signal has not expired.
func (s *RoomStream) TypingUsers() []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	users := make([]domain.UserID, 0, len(s.typing))
	for user, expires := range s.typing {
		if now.Before(expires) {
			users = append(users, user)
		}
	}
	slices.Sort(users)

	return users
}

// Compose reports the composer content so the typing signal follows it.
func (s *RoomStream) Compose(content string) {
	s.indicator.Update(content)
}

// Send persists content and announces it to the room. The message joins the
// merged sequence once the backend confirms it.
func (s *RoomStream) Send(ctx context.Context, content string) (domain.ChatMessage, error) {
	if s.room == 0 {
		return domain.ChatMessage{}, domain.ErrNoRoom
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	s.indicator.Stop()
	s.indicator.Flush()

	msg, err := s.repo.InsertMessage(ctx, domain.NewMessage{RoomID: s.room, SenderID: s.self, Content: content})
	if err != nil {
		s.logger.Error("send message failed", zap.Error(err))
		return domain.ChatMessage{}, fmt.Errorf("send message: %w", err)
	}

	s.addLive(msg)

	if channel := s.currentChannel(); channel != nil {
		if err := channel.Broadcast(ctx, EventNewMessage, msg); err != nil {
			s.logger.Warn("broadcast new message failed", zap.Error(err))
		}
	}

	return msg, nil
}

// MarkRead flags the room's incoming messages as read and asks the unread
// tracker to recompute.
func (s *RoomStream) MarkRead(ctx context.Context) error {
	if err := s.repo.MarkRoomRead(ctx, s.room, s.self); err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	if s.unread != nil {
		s.unread.RequestRefresh()
	}
	return nil
}

// Close stops the typing signal and leaves the room.
func (s *RoomStream) Close() error {
	s.indicator.Stop()
	s.indicator.Flush()

	s.mu.Lock()
	channel, done := s.channel, s.done
	s.channel = nil
	s.mu.Unlock()

	if channel == nil {
		return nil
	}
	err := channel.Close()
	<-done
	return err
}

func (s *RoomStream) consume(ctx context.Context, channel ports.RealtimeChannel) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	defer close(done)

	sweep := time.NewTicker(s.typingTTL)
	defer sweep.Stop()

	events := channel.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.expireTyping()
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *RoomStream) handleEvent(event ports.RealtimeEvent) {
	switch {
	case event.Change != nil:
		s.handleChange(*event.Change)
	case event.Broadcast != nil:
		s.handleBroadcast(*event.Broadcast)
	case event.Status == ports.StatusChannelError, event.Status == ports.StatusTimedOut:
		s.logger.Warn("room subscription degraded", zap.String("status", string(event.Status)), zap.Error(event.Err))
	}
}

func (s *RoomStream) handleChange(change ports.ChangeEvent) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(change.Record, &msg); err != nil {
		s.logger.Debug("ignore undecodable change", zap.Error(err))
		return
	}
	if msg.RoomID != s.room {
		return
	}

	switch change.Type {
	case ports.ChangeInsert:
		s.addLive(msg)
	case ports.ChangeUpdate:
		s.patchRead(msg)
	}
}

func (s *RoomStream) handleBroadcast(broadcast ports.BroadcastEvent) {
	switch broadcast.Event {
	case EventNewMessage:
		var msg domain.ChatMessage
		if err := json.Unmarshal(broadcast.Payload, &msg); err != nil {
			s.logger.Debug("ignore undecodable broadcast", zap.Error(err))
			return
		}
		if msg.RoomID != s.room {
			return
		}
		s.addLive(msg)
	case EventTyping:
		var signal domain.TypingSignal
		if err := json.Unmarshal(broadcast.Payload, &signal); err != nil {
			s.logger.Debug("ignore undecodable typing signal", zap.Error(err))
			return
		}
		s.applyTyping(signal)
	}
}

func (s *RoomStream) applyTyping(signal domain.TypingSignal) {
	if signal.UserID == s.self || signal.UserID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if signal.Typing {
		s.typing[signal.UserID] = s.clock.Now().Add(s.typingTTL)
		return
	}
	delete(s.typing, signal.UserID)
}

func (s *RoomStream) expireTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for user, expires := range s.typing {
		if !now.Before(expires) {
			delete(s.typing, user)
		}
	}
}

func (s *RoomStream) addLive(msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, source := range [][]domain.ChatMessage{s.initial, s.history, s.live} {
		if slices.ContainsFunc(source, func(m domain.ChatMessage) bool { return m.ID == msg.ID }) {
			return
		}
	}
	s.live = append(s.live, msg)
	s.remergeLocked()
}

func (s *RoomStream) patchRead(update domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, source := range [][]domain.ChatMessage{s.initial, s.history, s.live} {
		for i := range source {
			if source[i].ID == update.ID {
				source[i].Read = update.Read
			}
		}
	}
	s.remergeLocked()
}

func (s *RoomStream) remergeLocked() {
	s.merged = domain.MergeMessages(s.initial, s.history, s.live)

	snapshot := slices.Clone(s.merged)
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- snapshot:
	default:
	}
}

func (s *RoomStream) currentChannel() ports.RealtimeChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *RoomStream) sendTyping(ctx context.Context, typing bool) error {
	channel := s.currentChannel()
	if channel == nil {
		return nil
	}
	return channel.Broadcast(ctx, EventTyping, domain.TypingSignal{RoomID: s.room, UserID: s.self, Typing: typing})
}

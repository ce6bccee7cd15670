package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

const (
	leaveTimeout = 2 * time.Second
	inboxSize    = 64
)

// channel is one joined topic. Its run goroutine owns events and is the only
// writer to it.
type channel struct {
	client    *Client
	conn      *connection
	topic     string
	fullTopic string
	joinRef   string
	logger    *zap.Logger

	inbox    chan frame
	failures chan ports.RealtimeEvent
	events   chan ports.RealtimeEvent
	timeout  chan struct{}
	done     chan struct{}
	finished chan struct{}
	once     sync.Once

	mu     sync.Mutex
	timer  *time.Timer
	joined bool
}

var _ ports.RealtimeChannel = (*channel)(nil)

func newChannel(client *Client, conn *connection, topic, fullTopic, joinRef string) *channel {
	ch := &channel{
		client:    client,
		conn:      conn,
		topic:     topic,
		fullTopic: fullTopic,
		joinRef:   joinRef,
		logger:    client.logger.With(zap.String("topic", topic)),
		inbox:     make(chan frame, inboxSize),
		failures:  make(chan ports.RealtimeEvent, 1),
		events:    make(chan ports.RealtimeEvent, inboxSize),
		timeout:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	go ch.run()
	return ch
}

func (c *channel) Topic() string { return c.topic }

func (c *channel) Events() <-chan ports.RealtimeEvent { return c.events }

func (c *channel) Broadcast(ctx context.Context, event string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode broadcast payload: %w", err)
	}
	wrapped, err := json.Marshal(broadcastPayload{Type: eventBroadcast, Event: event, Payload: body})
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	return c.client.write(ctx, c.conn, frame{Topic: c.fullTopic, Event: eventBroadcast, Payload: wrapped, JoinRef: c.joinRef})
}

// Close leaves the topic and waits for the event stream to end.
func (c *channel) Close() error {
	select {
	case <-c.done:
	default:
		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		if err := c.client.write(ctx, c.conn, frame{Topic: c.fullTopic, Event: eventLeave, JoinRef: c.joinRef}); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Debug("leave channel", zap.Error(err))
		}
		cancel()
	}

	c.client.forget(c)
	c.terminate()
	<-c.finished
	return nil
}

func (c *channel) armJoinTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = time.AfterFunc(d, func() {
		select {
		case c.timeout <- struct{}{}:
		default:
		}
	})
}

func (c *channel) stopJoinTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *channel) dispatch(msg frame) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}

// fail reports status once and ends the channel.
func (c *channel) fail(status ports.SubscriptionStatus, err error) {
	select {
	case c.failures <- ports.RealtimeEvent{Status: status, Err: err}:
	default:
	}
	c.terminate()
}

func (c *channel) terminate() {
	c.once.Do(func() {
		c.stopJoinTimer()
		close(c.done)
	})
}

func (c *channel) run() {
	defer close(c.finished)
	defer close(c.events)

	for {
		select {
		case msg := <-c.inbox:
			if !c.handle(msg) {
				c.client.forget(c)
				c.terminate()
				return
			}
		case <-c.timeout:
			c.mu.Lock()
			joined := c.joined
			c.mu.Unlock()
			if !joined {
				c.emit(ports.RealtimeEvent{Status: ports.StatusTimedOut, Err: errors.New("join timed out")})
			}
		case <-c.done:
			select {
			case ev := <-c.failures:
				c.emitFinal(ev)
			default:
			}
			return
		}
	}
}

// handle translates one frame. It returns false when the server closed the
// channel.
func (c *channel) handle(msg frame) bool {
	switch msg.Event {
	case eventReply:
		if msg.Ref != c.joinRef {
			return true
		}
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			c.emit(ports.RealtimeEvent{Status: ports.StatusChannelError, Err: fmt.Errorf("decode join reply: %w", err)})
			return true
		}
		c.stopJoinTimer()
		if reply.Status != replyOK {
			c.emit(ports.RealtimeEvent{Status: ports.StatusChannelError, Err: fmt.Errorf("join rejected: %s", reply.Response)})
			return true
		}
		c.mu.Lock()
		c.joined = true
		c.mu.Unlock()
		c.emit(ports.RealtimeEvent{Status: ports.StatusSubscribed})
	case eventError:
		c.emit(ports.RealtimeEvent{Status: ports.StatusChannelError, Err: errors.New("channel error")})
	case eventClose:
		c.emit(ports.RealtimeEvent{Status: ports.StatusClosed})
		return false
	case eventChanges:
		var changes changesPayload
		if err := json.Unmarshal(msg.Payload, &changes); err != nil {
			c.logger.Debug("ignore malformed change", zap.Error(err))
			return true
		}
		c.emit(ports.RealtimeEvent{Change: &ports.ChangeEvent{
			Type:      ports.ChangeType(changes.Data.Type),
			Schema:    changes.Data.Schema,
			Table:     changes.Data.Table,
			Record:    changes.Data.Record,
			OldRecord: changes.Data.OldRecord,
		}})
	case eventBroadcast:
		var broadcast broadcastPayload
		if err := json.Unmarshal(msg.Payload, &broadcast); err != nil {
			c.logger.Debug("ignore malformed broadcast", zap.Error(err))
			return true
		}
		c.emit(ports.RealtimeEvent{Broadcast: &ports.BroadcastEvent{Event: broadcast.Event, Payload: broadcast.Payload}})
	case eventSystem:
		c.logger.Debug("realtime system message", zap.ByteString("payload", msg.Payload))
	}
	return true
}

func (c *channel) emit(ev ports.RealtimeEvent) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// emitFinal delivers a failure after done is closed. Consumers still drain
// events until it is closed, so a full buffer only drops the event.
func (c *channel) emitFinal(ev ports.RealtimeEvent) {
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("drop final status", zap.String("status", string(ev.Status)))
	}
}

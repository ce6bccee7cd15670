package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bnema/coachsync/internal/ports"
)

type channel struct {
	transport *Transport
	spec      ports.ChannelSpec

	events chan ports.RealtimeEvent
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

var _ ports.RealtimeChannel = (*channel)(nil)

func (c *channel) Topic() string { return c.spec.Topic }

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
	return c.transport.publish(ctx, broadcastEnvelope{Topic: c.spec.Topic, Event: event, Payload: body})
}

func (c *channel) Close() error {
	c.finish(ports.RealtimeEvent{})
	return nil
}

func (c *channel) offerChange(env changeEnvelope) {
	if !c.wantsChange(env) {
		return
	}
	c.deliver(ports.RealtimeEvent{Change: &ports.ChangeEvent{
		Type:      ports.ChangeType(env.Type),
		Schema:    env.Schema,
		Table:     env.Table,
		Record:    env.Record,
		OldRecord: env.OldRecord,
	}})
}

func (c *channel) offerBroadcast(env broadcastEnvelope, origin string) {
	if env.Topic != c.spec.Topic {
		return
	}
	if env.Origin == origin && !c.spec.ReceiveOwn {
		return
	}
	if len(c.spec.Broadcasts) > 0 && !slices.Contains(c.spec.Broadcasts, env.Event) {
		return
	}
	c.deliver(ports.RealtimeEvent{Broadcast: &ports.BroadcastEvent{Event: env.Event, Payload: env.Payload}})
}

func (c *channel) wantsChange(env changeEnvelope) bool {
	for _, filter := range c.spec.Changes {
		if filter.Event != ports.ChangeAll && string(filter.Event) != env.Type {
			continue
		}
		if filter.Schema != "" && filter.Schema != env.Schema {
			continue
		}
		if filter.Table != "" && filter.Table != env.Table {
			continue
		}
		record := env.Record
		if env.Type == string(ports.ChangeDelete) {
			record = env.OldRecord
		}
		if matchFilter(filter.Filter, record) {
			return true
		}
	}
	return false
}

// matchFilter evaluates a PostgREST "column=eq.value" filter against a JSON
// row. An empty filter matches everything; other operators never match.
func matchFilter(filter string, record json.RawMessage) bool {
	if filter == "" {
		return true
	}

	column, expr, ok := strings.Cut(filter, "=")
	if !ok {
		return false
	}
	want, ok := strings.CutPrefix(expr, "eq.")
	if !ok {
		return false
	}

	var row map[string]json.RawMessage
	if err := json.Unmarshal(record, &row); err != nil {
		return false
	}
	raw, ok := row[column]
	if !ok {
		return false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text == want
	}
	return string(raw) == want
}

func (c *channel) deliver(ev ports.RealtimeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// finish ends the channel once. A non-empty final status is delivered if the
// buffer has room.
func (c *channel) finish(final ports.RealtimeEvent) {
	c.once.Do(func() {
		close(c.done)
		c.transport.remove(c)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		if final.Status != "" {
			select {
			case c.events <- final:
			default:
			}
		}
		close(c.events)
	})
}

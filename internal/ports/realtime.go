package ports

import (
	"context"
	"encoding/json"
)

type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusChannelError SubscriptionStatus = "CHANNEL_ERROR"
	StatusTimedOut     SubscriptionStatus = "TIMED_OUT"
	StatusClosed       SubscriptionStatus = "CLOSED"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	ChangeAll    ChangeType = "*"
)

// ChangeFilter selects row-level notifications from the change feed. Filter
// uses the PostgREST form, e.g. "room_id=eq.5".
type ChangeFilter struct {
	Event  ChangeType
	Schema string
	Table  string
	Filter string
}

type ChannelSpec struct {
	Topic      string
	Changes    []ChangeFilter
	Broadcasts []string
	// ReceiveOwn asks the transport to echo our own broadcasts back.
	ReceiveOwn bool
}

type ChangeEvent struct {
	Type      ChangeType
	Schema    string
	Table     string
	Record    json.RawMessage
	OldRecord json.RawMessage
}

type BroadcastEvent struct {
	Event   string
	Payload json.RawMessage
}

// RealtimeEvent carries exactly one of Status, Change or Broadcast.
type RealtimeEvent struct {
	Status    SubscriptionStatus
	Err       error
	Change    *ChangeEvent
	Broadcast *BroadcastEvent
}

type RealtimeChannel interface {
	Topic() string
	// Events is closed once the channel is closed by either side.
	Events() <-chan RealtimeEvent
	Broadcast(ctx context.Context, event string, payload any) error
	Close() error
}

type RealtimeTransport interface {
	Subscribe(ctx context.Context, spec ChannelSpec) (RealtimeChannel, error)
}

package ws

import (
	"encoding/json"

	"github.com/bnema/coachsync/internal/ports"
)

const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"
	eventBroadcast = "broadcast"
	eventSystem    = "system"

	phoenixTopic = "phoenix"
	topicPrefix  = "realtime:"

	replyOK = "ok"
)

// frame is one Phoenix v1 JSON message.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type joinConfig struct {
	Broadcast       broadcastConfig `json:"broadcast"`
	Presence        presenceConfig  `json:"presence"`
	PostgresChanges []changeConfig  `json:"postgres_changes"`
}

type broadcastConfig struct {
	Self bool `json:"self"`
	Ack  bool `json:"ack"`
}

type presenceConfig struct {
	Key string `json:"key"`
}

type changeConfig struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changesPayload struct {
	Data struct {
		Schema    string          `json:"schema"`
		Table     string          `json:"table"`
		Type      string          `json:"type"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

type broadcastPayload struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func newJoinPayload(spec ports.ChannelSpec, accessToken string) joinPayload {
	changes := make([]changeConfig, 0, len(spec.Changes))
	for _, change := range spec.Changes {
		changes = append(changes, changeConfig{
			Event:  string(change.Event),
			Schema: change.Schema,
			Table:  change.Table,
			Filter: change.Filter,
		})
	}

	return joinPayload{
		Config: joinConfig{
			Broadcast:       broadcastConfig{Self: spec.ReceiveOwn},
			PostgresChanges: changes,
		},
		AccessToken: accessToken,
	}
}

package domain

import "fmt"

type ConnectionHealth int

const (
	HealthIdle ConnectionHealth = iota
	HealthConnecting
	HealthLive
	// HealthPolling is the degraded mode: the push subscription failed and the
	// aggregate is refreshed on a timer until a reconnect succeeds.
	HealthPolling
	HealthReconnecting
)

func (h ConnectionHealth) String() string {
	switch h {
	case HealthIdle:
		return "idle"
	case HealthConnecting:
		return "connecting"
	case HealthLive:
		return "live"
	case HealthPolling:
		return "polling"
	case HealthReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("health(%d)", int(h))
	}
}

func (h ConnectionHealth) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

type TypingSignal struct {
	RoomID RoomID `json:"room_id"`
	UserID UserID `json:"user_id"`
	Typing bool   `json:"typing"`
}

package domain

import (
	"slices"
	"time"
)

type RoomID int64

type MessageID int64

type ChatMessage struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"room_id"`
	SenderID  UserID    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Read      *bool     `json:"read,omitempty"`
}

// IsUnreadFor reports whether the message counts toward self's unread total:
// someone else sent it and it has not been marked read.
func (m ChatMessage) IsUnreadFor(self UserID) bool {
	if m.SenderID == self {
		return false
	}

	return m.Read == nil || !*m.Read
}

type NewMessage struct {
	RoomID   RoomID
	SenderID UserID
	Content  string
}

// MergeMessages concatenates the sources in order, keeps the first message seen
// for each id and sorts the result by creation time. Equal timestamps keep
// their concatenation order.
func MergeMessages(sources ...[]ChatMessage) []ChatMessage {
	total := 0
	for _, source := range sources {
		total += len(source)
	}

	merged := make([]ChatMessage, 0, total)
	seen := make(map[MessageID]struct{}, total)
	for _, source := range sources {
		for _, msg := range source {
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			merged = append(merged, msg)
		}
	}

	slices.SortStableFunc(merged, func(a, b ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return merged
}

// CountUnread counts messages in msgs that are unread for self.
func CountUnread(msgs []ChatMessage, self UserID) int {
	count := 0
	for _, msg := range msgs {
		if msg.IsUnreadFor(self) {
			count++
		}
	}

	return count
}

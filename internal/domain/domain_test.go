package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 9, 0, sec, 0, time.UTC)
}

func messageIDs(msgs []ChatMessage) []MessageID {
	ids := make([]MessageID, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestMergeMessagesDropsDuplicateLiveEvent(t *testing.T) {
	history := []ChatMessage{
		{ID: 1, RoomID: 5, CreatedAt: at(10)},
		{ID: 2, RoomID: 5, CreatedAt: at(20)},
	}
	live := []ChatMessage{{ID: 2, RoomID: 5, CreatedAt: at(20)}}

	merged := MergeMessages(nil, history, live)

	assert.Equal(t, []MessageID{1, 2}, messageIDs(merged))
}

func TestMergeMessagesSortsOutOfOrderDelivery(t *testing.T) {
	history := []ChatMessage{{ID: 1, CreatedAt: at(10)}}
	live := []ChatMessage{
		{ID: 4, CreatedAt: at(40)},
		{ID: 3, CreatedAt: at(30)},
		{ID: 2, CreatedAt: at(20)},
	}

	merged := MergeMessages(history, live)

	assert.Equal(t, []MessageID{1, 2, 3, 4}, messageIDs(merged))
}

func TestMergeMessagesFirstOccurrenceWins(t *testing.T) {
	initial := []ChatMessage{{ID: 7, Content: "initial", CreatedAt: at(5)}}
	history := []ChatMessage{{ID: 7, Content: "history", CreatedAt: at(5)}}

	merged := MergeMessages(initial, history)

	require.Len(t, merged, 1)
	assert.Equal(t, "initial", merged[0].Content)
}

func TestMergeMessagesEqualTimestampsKeepConcatenationOrder(t *testing.T) {
	merged := MergeMessages(
		[]ChatMessage{{ID: 9, CreatedAt: at(1)}},
		[]ChatMessage{{ID: 3, CreatedAt: at(1)}},
	)

	assert.Equal(t, []MessageID{9, 3}, messageIDs(merged))
}

func TestMergeMessagesEmptySources(t *testing.T) {
	assert.Empty(t, MergeMessages())
	assert.Empty(t, MergeMessages(nil, []ChatMessage{}))
}

func TestChatMessageIsUnreadFor(t *testing.T) {
	tests := []struct {
		name string
		msg  ChatMessage
		want bool
	}{
		{name: "own message never unread", msg: ChatMessage{SenderID: "me"}, want: false},
		{name: "null read flag counts", msg: ChatMessage{SenderID: "coach"}, want: true},
		{name: "explicit false counts", msg: ChatMessage{SenderID: "coach", Read: Ptr(false)}, want: true},
		{name: "read message ignored", msg: ChatMessage{SenderID: "coach", Read: Ptr(true)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.IsUnreadFor("me"))
		})
	}
}

func TestCountUnread(t *testing.T) {
	msgs := []ChatMessage{
		{ID: 1, SenderID: "coach"},
		{ID: 2, SenderID: "me"},
		{ID: 3, SenderID: "coach", Read: Ptr(true)},
		{ID: 4, SenderID: "coach", Read: Ptr(false)},
	}

	assert.Equal(t, 2, CountUnread(msgs, "me"))
}

func TestSessionApplyLeavesNilFieldsUntouched(t *testing.T) {
	session := Session{AccessToken: "T1", DeviceID: "device-1", IsAuthenticated: true}

	updated := session.Apply(SessionPatch{AccessToken: Ptr("T2")})

	assert.Equal(t, "T2", updated.AccessToken)
	assert.Equal(t, "device-1", updated.DeviceID)
	assert.True(t, updated.IsAuthenticated)
	assert.Equal(t, "T1", session.AccessToken)
}

func TestSessionHasToken(t *testing.T) {
	assert.False(t, Session{}.HasToken())
	assert.False(t, Session{AccessToken: "  "}.HasToken())
	assert.True(t, Session{AccessToken: "T1"}.HasToken())
}

func TestProfileDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Silva", Profile{FirstName: "Ana", LastName: "Silva"}.DisplayName())
	assert.Equal(t, "ana@example.com", Profile{Email: "ana@example.com"}.DisplayName())
	assert.Equal(t, "user-1", Profile{ID: "user-1"}.DisplayName())
}

func TestConnectionHealthString(t *testing.T) {
	assert.Equal(t, "live", HealthLive.String())
	assert.Equal(t, "polling", HealthPolling.String())
	assert.Equal(t, "health(42)", ConnectionHealth(42).String())
}

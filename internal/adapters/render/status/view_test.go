package status

import (
	"testing"
	"time"

	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAuthenticatedSession(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(View{
		Session: &application.SessionStatus{
			UserID:          "user-1",
			DeviceID:        "device-1",
			IsAuthenticated: true,
			HasToken:        true,
			ExpiresAt:       now.Add(13 * time.Hour),
			Profile:         &domain.Profile{ID: "user-1", FirstName: "Ada", LastName: "Coach", Role: "client"},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Session")
	assert.Contains(t, output, "Ada Coach (client)")
	assert.Contains(t, output, "user: user-1")
	assert.Contains(t, output, "device: device-1")
	assert.Contains(t, output, "expires in 13 hours (00:00)")
	assert.NotContains(t, output, "last error")
}

func TestRenderSignedOutSessionShowsLastError(t *testing.T) {
	output, err := Render(View{
		Session: &application.SessionStatus{LastError: "session refresh failed"},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Signed out.")
	assert.Contains(t, output, "last error: session refresh failed")
}

func TestRenderSessionTokenStates(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status application.SessionStatus
		want   string
	}{
		{name: "missing", status: application.SessionStatus{IsAuthenticated: true}, want: "token: missing"},
		{name: "no expiry", status: application.SessionStatus{IsAuthenticated: true, HasToken: true}, want: "token: present"},
		{name: "expired", status: application.SessionStatus{IsAuthenticated: true, HasToken: true, ExpiresAt: now.Add(-time.Minute), Expired: true}, want: "expired, refreshes on next request"},
		{name: "minutes", status: application.SessionStatus{IsAuthenticated: true, HasToken: true, ExpiresAt: now.Add(90 * time.Second)}, want: "expires in 2 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.status
			output, err := Render(View{Session: &status}, RenderOptions{Now: now})
			require.NoError(t, err)
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestRenderUnreadSnapshot(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(View{
		Unread: &application.UnreadSnapshot{
			Count:        4,
			Rooms:        1,
			Health:       domain.HealthPolling,
			RecomputedAt: now.Add(-30 * time.Second),
		},
	}, RenderOptions{Now: now, StaleAfter: 2 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "Unread")
	assert.Contains(t, output, " 4 ")
	assert.Contains(t, output, "across 1 room")
	assert.Contains(t, output, "connection: polling")
	assert.Contains(t, output, "updated 30 seconds ago")
	assert.NotContains(t, output, "[stale]")
}

func TestRenderUnreadMarksStaleCount(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(View{
		Unread: &application.UnreadSnapshot{
			Count:        1,
			Rooms:        2,
			Health:       domain.HealthLive,
			RecomputedAt: now.Add(-3 * time.Minute),
		},
	}, RenderOptions{Now: now, StaleAfter: 2 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "across 2 rooms")
	assert.Contains(t, output, "[stale]")
}

func TestRenderRoomTranscript(t *testing.T) {
	base := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(View{
		Room: &RoomView{
			ID:   5,
			Self: "me",
			Messages: []domain.ChatMessage{
				{ID: 1, RoomID: 5, SenderID: "coach", Content: "How was the run?", CreatedAt: base, Read: domain.Ptr(true)},
				{ID: 2, RoomID: 5, SenderID: "me", Content: "Great, 10k", CreatedAt: base.Add(time.Minute)},
				{ID: 3, RoomID: 5, SenderID: "coach", Content: "Nice", CreatedAt: base.Add(2 * time.Minute)},
			},
			Typing: []domain.UserID{"coach"},
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Room 5")
	assert.Contains(t, output, "messages: 3")
	assert.Contains(t, output, "coach: How was the run?")
	assert.Contains(t, output, "you: Great, 10k")
	assert.Contains(t, output, "Nice *")
	assert.Contains(t, output, "coach is typing...")
}

func TestRenderEmptyView(t *testing.T) {
	output, err := Render(View{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Nothing to show.")
}

func TestRenderEmptyRoom(t *testing.T) {
	output, err := Render(View{Room: &RoomView{ID: 9}}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "No messages yet.")
	assert.NotContains(t, output, "typing")
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatAgo(now, now))
	assert.Equal(t, "1 second ago", formatAgo(now.Add(-time.Second), now))
	assert.Equal(t, "5 minutes ago", formatAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "at 09:00", formatAgo(now.Add(-2*time.Hour), now))
}

func TestRenderUnreadLine(t *testing.T) {
	line := RenderUnreadLine(application.UnreadSnapshot{Count: 3, Health: domain.HealthReconnecting})

	assert.Contains(t, line, "unread:")
	assert.Contains(t, line, "3")
	assert.Contains(t, line, domain.HealthReconnecting.String())
}

func TestRenderRoomDirect(t *testing.T) {
	out := RenderRoom(RoomView{ID: 2, Self: "me", Typing: []domain.UserID{"a", "b"}})

	assert.Contains(t, out, "Room 2")
	assert.Contains(t, out, "a, b are typing...")
}

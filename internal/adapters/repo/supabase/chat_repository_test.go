package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/coachsync/internal/adapters/rest"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *ChatRepository {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	repo, err := NewChatRepository(Options{
		URL:         server.URL,
		APIKey:      "anon-key",
		HTTPClient:  server.Client(),
		AccessToken: func() string { return "user-token" },
		Logger:      zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return repo
}

func TestNewChatRepositoryValidatesOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "missing url", opts: Options{APIKey: "k"}, want: "supabase url is required"},
		{name: "bad scheme", opts: Options{URL: "ftp://x", APIKey: "k"}, want: "http or https"},
		{name: "missing key", opts: Options{URL: "https://x.supabase.co"}, want: "api key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewChatRepository(tt.opts)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestListRoomIDs(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/room_members", r.URL.Path)
		assert.Equal(t, "eq.me", r.URL.Query().Get("user_id"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"room_id":5},{"room_id":6}]`)
	})

	rooms, err := repo.ListRoomIDs(context.Background(), "me")
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomID{5, 6}, rooms)
}

func TestCountUnreadUsesExactCount(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "in.(5,6)", query.Get("room_id"))
		assert.Equal(t, "neq.me", query.Get("sender_id"))
		assert.Equal(t, "(read.is.null,read.eq.false)", query.Get("or"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-2/3")
	})

	count, err := repo.CountUnread(context.Background(), "me", []domain.RoomID{5, 6})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCountUnreadWithoutRoomsSkipsRequest(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(http.ResponseWriter, *http.Request) {
		t.Error("unexpected request")
	})

	count, err := repo.CountUnread(context.Background(), "me", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListMessagesDecodesRows(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.5", r.URL.Query().Get("room_id"))
		assert.Equal(t, "created_at.asc,id.asc", r.URL.Query().Get("order"))
		_, _ = io.WriteString(w, `[
			{"id":1,"room_id":5,"sender_id":"coach","content":"hi","created_at":"2026-01-02T03:04:05+00:00","read":true},
			{"id":2,"room_id":5,"sender_id":"me","content":"yo","created_at":"2026-01-02T03:04:06+00:00","read":null}
		]`)
	})

	messages, err := repo.ListMessages(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.NotNil(t, messages[0].Read)
	assert.True(t, *messages[0].Read)
	assert.Nil(t, messages[1].Read)
	assert.True(t, messages[0].CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestInsertMessageReturnsRepresentation(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"room_id": float64(5), "sender_id": "me", "content": "hello"}, body)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":9,"room_id":5,"sender_id":"me","content":"hello","created_at":"2026-01-02T03:04:05Z"}]`)
	})

	msg, err := repo.InsertMessage(context.Background(), domain.NewMessage{RoomID: 5, SenderID: "me", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageID(9), msg.ID)
	assert.Equal(t, "hello", msg.Content)
}

func TestMarkRoomReadPatchesUnreadRows(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.5", r.URL.Query().Get("room_id"))
		assert.Equal(t, "neq.me", r.URL.Query().Get("sender_id"))

		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]bool{"read": true}, body)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, repo.MarkRoomRead(context.Background(), 5, "me"))
}

func TestPostgrestErrorSurfacesAsAPIError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"permission denied for table messages"}`)
	})

	_, err := repo.ListMessages(context.Background(), 5)

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "permission denied for table messages", apiErr.Message)
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0-24/3573", want: 3573},
		{in: "*/0", want: 0},
		{in: "0-24/*", wantErr: true},
		{in: "", wantErr: true},
		{in: "0-1/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseContentRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

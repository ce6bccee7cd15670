package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/coachsync/internal/adapters/rest"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

const (
	restPrefix      = "rest/v1/"
	membersTable    = "room_members"
	messagesTable   = "messages"
	unreadCondition = "(read.is.null,read.eq.false)"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

type Options struct {
	// URL is the project URL, e.g. https://project.supabase.co.
	URL    string
	APIKey string
	// HTTPClient should attach the user's bearer token, e.g. the
	// authenticated REST client. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// AccessToken is used when HTTPClient does not authenticate requests.
	AccessToken func() string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// ChatRepository reads and writes chat rows through PostgREST.
type ChatRepository struct {
	baseURL     *url.URL
	apiKey      string
	client      *http.Client
	accessToken func() string
	timeout     time.Duration
	logger      *zap.Logger
}

var _ ports.ChatRepository = (*ChatRepository)(nil)

func NewChatRepository(opts Options) (*ChatRepository, error) {
	if opts.URL == "" {
		return nil, errors.New("supabase url is required")
	}
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse supabase url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("supabase url must use http or https")
	}
	if opts.APIKey == "" {
		return nil, errors.New("supabase api key is required")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatRepository{
		baseURL:     parsed,
		apiKey:      opts.APIKey,
		client:      client,
		accessToken: opts.AccessToken,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

type memberRow struct {
	RoomID domain.RoomID `json:"room_id"`
}

type insertRow struct {
	RoomID   domain.RoomID `json:"room_id"`
	SenderID domain.UserID `json:"sender_id"`
	Content  string        `json:"content"`
}

func (r *ChatRepository) ListRoomIDs(ctx context.Context, user domain.UserID) ([]domain.RoomID, error) {
	query := url.Values{}
	query.Set("select", "room_id")
	query.Set("user_id", "eq."+string(user))
	query.Set("order", "room_id.asc")

	var rows []memberRow
	if _, err := r.do(ctx, http.MethodGet, membersTable, query, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]domain.RoomID, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.RoomID)
	}
	return rooms, nil
}

// CountUnread asks PostgREST for an exact count without transferring rows.
func (r *ChatRepository) CountUnread(ctx context.Context, user domain.UserID, rooms []domain.RoomID) (int, error) {
	if len(rooms) == 0 {
		return 0, nil
	}

	query := url.Values{}
	query.Set("select", "id")
	query.Set("room_id", "in.("+joinRoomIDs(rooms)+")")
	query.Set("sender_id", "neq."+string(user))
	query.Set("or", unreadCondition)

	header := http.Header{}
	header.Set("Prefer", "count=exact")

	resp, err := r.do(ctx, http.MethodHead, messagesTable, query, header, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	count, err := parseContentRange(resp.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, room domain.RoomID) ([]domain.ChatMessage, error) {
	query := url.Values{}
	query.Set("select", "id,room_id,sender_id,content,created_at,read")
	query.Set("room_id", "eq."+strconv.FormatInt(int64(room), 10))
	query.Set("order", "created_at.asc,id.asc")

	var messages []domain.ChatMessage
	if _, err := r.do(ctx, http.MethodGet, messagesTable, query, nil, nil, &messages); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (r *ChatRepository) InsertMessage(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	header := http.Header{}
	header.Set("Prefer", "return=representation")

	var created []domain.ChatMessage
	body := insertRow{RoomID: msg.RoomID, SenderID: msg.SenderID, Content: msg.Content}
	if _, err := r.do(ctx, http.MethodPost, messagesTable, nil, header, body, &created); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	if len(created) == 0 {
		return domain.ChatMessage{}, errors.New("insert message: empty representation")
	}

	return created[0], nil
}

func (r *ChatRepository) MarkRoomRead(ctx context.Context, room domain.RoomID, user domain.UserID) error {
	query := url.Values{}
	query.Set("room_id", "eq."+strconv.FormatInt(int64(room), 10))
	query.Set("sender_id", "neq."+string(user))
	query.Set("or", unreadCondition)

	header := http.Header{}
	header.Set("Prefer", "return=minimal")

	if _, err := r.do(ctx, http.MethodPatch, messagesTable, query, header, map[string]bool{"read": true}, nil); err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	return nil
}

func (r *ChatRepository) do(ctx context.Context, method, table string, query url.Values, header http.Header, body any, out any) (http.Header, error) {
	endpoint, err := r.baseURL.Parse(restPrefix + table)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", table, err)
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.accessToken != nil {
		if token := r.accessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, rest.DecodeAPIError(resp)
	}
	if out == nil || method == http.MethodHead || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", table, err)
	}
	return resp.Header, nil
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(value string) (int, error) {
	_, total, ok := strings.Cut(value, "/")
	if !ok || total == "" || total == "*" {
		return 0, fmt.Errorf("missing count in content range %q", value)
	}
	count, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parse content range %q: %w", value, err)
	}
	return count, nil
}

func joinRoomIDs(rooms []domain.RoomID) string {
	parts := make([]string, len(rooms))
	for i, room := range rooms {
		parts[i] = strconv.FormatInt(int64(room), 10)
	}
	return strings.Join(parts, ",")
}

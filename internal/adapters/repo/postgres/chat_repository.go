package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	listRoomIDsQuery = `
		SELECT room_id FROM room_members
		WHERE user_id = $1
		ORDER BY room_id`

	countUnreadQuery = `
		SELECT count(*) FROM messages
		WHERE room_id = ANY($1) AND sender_id <> $2 AND (read IS NULL OR read = false)`

	listMessagesQuery = `
		SELECT id, room_id, sender_id, content, created_at, read FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC`

	insertMessageQuery = `
		INSERT INTO messages (room_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, sender_id, content, created_at, read`

	markRoomReadQuery = `
		UPDATE messages SET read = true
		WHERE room_id = $1 AND sender_id <> $2 AND (read IS NULL OR read = false)`

	pingTimeout = 5 * time.Second

	codeUndefinedTable = "42P01"
)

// ChatRepository reads and writes chat rows directly in Postgres.
type ChatRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.ChatRepository = (*ChatRepository)(nil)

func NewChatRepository(db *sql.DB, logger *zap.Logger) *ChatRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatRepository{db: db, logger: logger}
}

// Open connects to databaseURL, configures the pool and pings the server.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*sql.DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", RedactDSN(databaseURL), err)
	}

	logger.Debug("database connected", zap.String("dsn", RedactDSN(databaseURL)))
	return db, nil
}

// RedactDSN masks the password of a URL-form DSN for logging.
func RedactDSN(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Scheme == "" {
		return "(invalid database url)"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

func (r *ChatRepository) ListRoomIDs(ctx context.Context, user domain.UserID) ([]domain.RoomID, error) {
	rows, err := r.db.QueryContext(ctx, listRoomIDsQuery, string(user))
	if err != nil {
		return nil, wrapQueryError("list rooms", err)
	}
	defer rows.Close()

	var rooms []domain.RoomID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		rooms = append(rooms, domain.RoomID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

func (r *ChatRepository) CountUnread(ctx context.Context, user domain.UserID, rooms []domain.RoomID) (int, error) {
	if len(rooms) == 0 {
		return 0, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx, countUnreadQuery, pq.Array(roomIDs(rooms)), string(user)).Scan(&count)
	if err != nil {
		return 0, wrapQueryError("count unread", err)
	}

	return count, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, room domain.RoomID) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, listMessagesQuery, int64(room))
	if err != nil {
		return nil, wrapQueryError("list messages", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func (r *ChatRepository) InsertMessage(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	row := r.db.QueryRowContext(ctx, insertMessageQuery, int64(msg.RoomID), string(msg.SenderID), msg.Content)
	created, err := scanMessage(row)
	if err != nil {
		return domain.ChatMessage{}, wrapQueryError("insert message", err)
	}

	r.logger.Debug("message inserted", zap.Int64("room", int64(created.RoomID)), zap.Int64("id", int64(created.ID)))
	return created, nil
}

func (r *ChatRepository) MarkRoomRead(ctx context.Context, room domain.RoomID, user domain.UserID) error {
	res, err := r.db.ExecContext(ctx, markRoomReadQuery, int64(room), string(user))
	if err != nil {
		return wrapQueryError("mark room read", err)
	}

	if affected, err := res.RowsAffected(); err == nil {
		r.logger.Debug("room marked read", zap.Int64("room", int64(room)), zap.Int64("rows", affected))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (domain.ChatMessage, error) {
	var (
		msg    domain.ChatMessage
		id     int64
		roomID int64
		sender string
		read   sql.NullBool
	)
	if err := row.Scan(&id, &roomID, &sender, &msg.Content, &msg.CreatedAt, &read); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("scan message: %w", err)
	}

	msg.ID = domain.MessageID(id)
	msg.RoomID = domain.RoomID(roomID)
	msg.SenderID = domain.UserID(sender)
	if read.Valid {
		value := read.Bool
		msg.Read = &value
	}
	return msg, nil
}

func roomIDs(rooms []domain.RoomID) []int64 {
	ids := make([]int64, len(rooms))
	for i, room := range rooms {
		ids[i] = int64(room)
	}
	return ids
}

func wrapQueryError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUndefinedTable {
		return fmt.Errorf("%s: chat schema missing (%s): %w", op, pqErr.Message, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

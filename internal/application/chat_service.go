package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

// ChatService opens rooms for the signed-in user.
type ChatService struct {
	sessions  *SessionStore
	repo      ports.ChatRepository
	transport ports.RealtimeTransport
	unread    UnreadRefresher
	clock     ports.Clock
	logger    *zap.Logger

	typingTTL       time.Duration
	typingKeepAlive time.Duration
	typingIdle      time.Duration
}

func NewChatService(sessions *SessionStore, repo ports.ChatRepository, transport ports.RealtimeTransport, unread UnreadRefresher, clock ports.Clock, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatService{
		sessions:  sessions,
		repo:      repo,
		transport: transport,
		unread:    unread,
		clock:     clock,
		logger:    logger,
	}
}

// SetTypingTimings overrides the typing keep-alive, idle timeout and remote
// expiry for rooms opened afterwards. Zero keeps the default.
func (s *ChatService) SetTypingTimings(keepAlive, idle, ttl time.Duration) {
	s.typingKeepAlive = keepAlive
	s.typingIdle = idle
	s.typingTTL = ttl
}

func (s *ChatService) self() (domain.UserID, error) {
	session := s.sessions.Read()
	if !session.IsAuthenticated || session.UserID == "" {
		return "", domain.ErrNotAuthenticated
	}
	return session.UserID, nil
}

func (s *ChatService) Rooms(ctx context.Context) ([]domain.RoomID, error) {
	self, err := s.self()
	if err != nil {
		return nil, err
	}

	rooms, err := s.repo.ListRoomIDs(ctx, self)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *ChatService) History(ctx context.Context, room domain.RoomID) ([]domain.ChatMessage, error) {
	if room == 0 {
		return nil, domain.ErrNoRoom
	}
	if _, err := s.self(); err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("load room history: %w", err)
	}
	return domain.MergeMessages(msgs), nil
}

// OpenRoom returns a subscribed stream. The caller must Close it.
func (s *ChatService) OpenRoom(ctx context.Context, room domain.RoomID, initial []domain.ChatMessage) (*RoomStream, error) {
	self, err := s.self()
	if err != nil {
		return nil, err
	}

	stream := NewRoomStream(RoomStreamOptions{
		Room:      room,
		Self:      self,
		Repo:      s.repo,
		Transport: s.transport,
		Unread:    s.unread,
		Clock:     s.clock,
		Logger:    s.logger,

		TypingTTL:       s.typingTTL,
		TypingKeepAlive: s.typingKeepAlive,
		TypingIdle:      s.typingIdle,
	})
	if err := stream.Open(ctx, initial); err != nil {
		return nil, err
	}

	return stream, nil
}

// Send delivers one message through a short-lived room subscription.
func (s *ChatService) Send(ctx context.Context, cmd SendMessageCommand) (domain.ChatMessage, error) {
	if cmd.RoomID == 0 {
		return domain.ChatMessage{}, domain.ErrNoRoom
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	stream, err := s.OpenRoom(ctx, cmd.RoomID, nil)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Debug("close room", zap.Error(err))
		}
	}()

	return stream.Send(ctx, cmd.Content)
}

func (s *ChatService) MarkRead(ctx context.Context, room domain.RoomID) error {
	if room == 0 {
		return domain.ErrNoRoom
	}
	self, err := s.self()
	if err != nil {
		return err
	}

	if err := s.repo.MarkRoomRead(ctx, room, self); err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	if s.unread != nil {
		s.unread.RequestRefresh()
	}
	return nil
}

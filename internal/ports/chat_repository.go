package ports

import (
	"context"

	"github.com/bnema/coachsync/internal/domain"
)

type ChatRepository interface {
	// ListRoomIDs returns every room the user participates in.
	ListRoomIDs(ctx context.Context, user domain.UserID) ([]domain.RoomID, error)
	// CountUnread counts messages in rooms not sent by user whose read flag is
	// false or unset.
	CountUnread(ctx context.Context, user domain.UserID, rooms []domain.RoomID) (int, error)
	// ListMessages returns the room history ordered by creation time ascending.
	ListMessages(ctx context.Context, room domain.RoomID) ([]domain.ChatMessage, error)
	InsertMessage(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error)
	// MarkRoomRead flags every message in room not sent by user as read.
	MarkRoomRead(ctx context.Context, room domain.RoomID, user domain.UserID) error
}

package application

import "github.com/bnema/coachsync/internal/domain"

type LoginCommand struct {
	Email    string
	Password string
	// PushToken is registered best-effort after a successful login.
	PushToken string
}

type SendMessageCommand struct {
	RoomID  domain.RoomID
	Content string
}

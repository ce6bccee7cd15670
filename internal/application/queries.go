package application

import (
	"time"

	"github.com/bnema/coachsync/internal/domain"
)

type SessionStatus struct {
	UserID          domain.UserID
	DeviceID        string
	IsAuthenticated bool
	HasToken        bool
	LastError       string
	ExpiresAt       time.Time
	Expired         bool
	Profile         *domain.Profile
}

type UnreadSnapshot struct {
	Count        int
	Rooms        int
	Health       domain.ConnectionHealth
	RecomputedAt time.Time
}

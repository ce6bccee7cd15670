package ports

import (
	"context"

	"github.com/bnema/coachsync/internal/domain"
)

type Credentials struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string
	DeviceID    string
	Profile     domain.Profile
}

// AuthGateway is the backend surface the session lifecycle talks to.
type AuthGateway interface {
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
	FetchProfile(ctx context.Context, id domain.UserID) (domain.Profile, error)
	RegisterPushToken(ctx context.Context, token string) error
	// ForgetCookies drops the refresh cookie from memory and the secret store.
	ForgetCookies(ctx context.Context) error
}

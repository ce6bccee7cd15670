package ports

import (
	"context"

	"github.com/bnema/coachsync/internal/domain"
)

// SessionRepository persists the non-secret session fields. Load returns
// domain.ErrSessionNotFound when nothing was saved yet.
type SessionRepository interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}

type ProfileCache interface {
	Load(ctx context.Context) (domain.Profile, error)
	Save(ctx context.Context, profile domain.Profile) error
	Clear(ctx context.Context) error
}

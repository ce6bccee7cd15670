package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

const AccessTokenSecretKey = "coach://session/access_token"

// SessionStore is the in-memory session backed by the state file and the
// secret store. Rehydrate must complete before anything reads it.
type SessionStore struct {
	mu      sync.RWMutex
	session domain.Session

	persistMu sync.Mutex
	repo      ports.SessionRepository
	secrets   ports.SecretStore
	logger    *zap.Logger
}

func NewSessionStore(repo ports.SessionRepository, secrets ports.SecretStore, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionStore{repo: repo, secrets: secrets, logger: logger}
}

func (s *SessionStore) Rehydrate(ctx context.Context) error {
	session, err := s.repo.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("load session: %w", err)
	}

	token, err := s.secrets.Get(ctx, AccessTokenSecretKey)
	switch {
	case err == nil:
		session.AccessToken = token
	case errors.Is(err, domain.ErrSecretNotFound):
	default:
		return fmt.Errorf("load access token: %w", err)
	}

	if session.UserID == "" && session.HasToken() {
		if userID, err := UserIDFromToken(session.AccessToken); err == nil {
			session.UserID = userID
		}
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	return nil
}

func (s *SessionStore) Read() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Write applies patch in memory, then persists the resulting session.
// Concurrent writers are last-writer-wins.
func (s *SessionStore) Write(ctx context.Context, patch domain.SessionPatch) error {
	if patch.AccessToken != nil && patch.UserID == nil && *patch.AccessToken != "" {
		if userID, err := UserIDFromToken(*patch.AccessToken); err == nil {
			patch.UserID = &userID
		} else {
			s.logger.Debug("access token subject unavailable", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.session = s.session.Apply(patch)
	s.mu.Unlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	session := s.Read()
	if err := s.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if patch.AccessToken == nil {
		return nil
	}
	if session.AccessToken == "" {
		if err := s.secrets.Delete(ctx, AccessTokenSecretKey); err != nil {
			return fmt.Errorf("delete access token: %w", err)
		}
		return nil
	}
	if err := s.secrets.Put(ctx, AccessTokenSecretKey, session.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}

	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = domain.Session{}
	s.mu.Unlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var errs error
	if err := s.repo.Clear(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("clear session: %w", err))
	}
	if err := s.secrets.Delete(ctx, AccessTokenSecretKey); err != nil {
		errs = errors.Join(errs, fmt.Errorf("delete access token: %w", err))
	}

	return errs
}

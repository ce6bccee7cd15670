package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service owns the session lifecycle: login, logout and the cached profile.
type Service struct {
	gateway  ports.AuthGateway
	sessions *SessionStore
	profiles ports.ProfileCache
	clock    ports.Clock
	logger   *zap.Logger

	newDeviceID func() string

	listenersMu sync.Mutex
	listeners   []func(domain.UserID)
}

func NewService(gateway ports.AuthGateway, sessions *SessionStore, profiles ports.ProfileCache, clock ports.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		gateway:     gateway,
		sessions:    sessions,
		profiles:    profiles,
		clock:       clock,
		logger:      logger,
		newDeviceID: uuid.NewString,
	}
}

// OnIdentityChange registers fn to run after login and logout with the new
// user id, empty when signed out.
func (s *Service) OnIdentityChange(fn func(domain.UserID)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(user domain.UserID) {
	s.listenersMu.Lock()
	listeners := append([]func(domain.UserID){}, s.listeners...)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
}

func (s *Service) Login(ctx context.Context, cmd LoginCommand) (domain.Profile, error) {
	current := s.sessions.Read()
	deviceID := current.DeviceID
	if deviceID == "" {
		deviceID = s.newDeviceID()
		if err := s.sessions.Write(ctx, domain.SessionPatch{DeviceID: &deviceID}); err != nil {
			return domain.Profile{}, err
		}
	}

	result, err := s.gateway.Login(ctx, ports.Credentials{Email: strings.TrimSpace(cmd.Email), Password: cmd.Password})
	if err != nil {
		if writeErr := s.sessions.Write(ctx, domain.SessionPatch{
			IsAuthenticated: domain.Ptr(false),
			LastError:       domain.Ptr(err.Error()),
		}); writeErr != nil {
			return domain.Profile{}, errors.Join(err, writeErr)
		}
		return domain.Profile{}, err
	}

	if result.DeviceID != "" {
		deviceID = result.DeviceID
	}
	patch := domain.SessionPatch{
		AccessToken:     &result.AccessToken,
		DeviceID:        &deviceID,
		IsAuthenticated: domain.Ptr(true),
		LastError:       domain.Ptr(""),
	}
	if result.Profile.ID != "" {
		patch.UserID = &result.Profile.ID
	}
	if err := s.sessions.Write(ctx, patch); err != nil {
		return domain.Profile{}, fmt.Errorf("store session: %w", err)
	}

	session := s.sessions.Read()
	profile := result.Profile
	if profile.ID == "" {
		profile.ID = session.UserID
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Warn("cache profile", zap.Error(err))
	}

	if cmd.PushToken != "" {
		if err := s.gateway.RegisterPushToken(ctx, cmd.PushToken); err != nil {
			s.logger.Warn("push token registration failed", zap.Error(err))
		}
	}

	s.logger.Info("signed in", zap.String("user", string(session.UserID)))
	s.notify(session.UserID)

	return profile, nil
}

// Logout clears the session, the cached profile and the refresh cookie. It
// is also the forced-logout path after a failed token refresh.
func (s *Service) Logout(ctx context.Context) error {
	var errs error
	if err := s.sessions.Clear(ctx); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := s.profiles.Clear(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("clear profile: %w", err))
	}
	if err := s.gateway.ForgetCookies(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("forget cookies: %w", err))
	}

	s.logger.Info("signed out")
	s.notify("")

	return errs
}

// Profile returns the cached profile, fetching and caching it when absent.
func (s *Service) Profile(ctx context.Context) (domain.Profile, error) {
	profile, err := s.profiles.Load(ctx)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	session := s.sessions.Read()
	if !session.IsAuthenticated || session.UserID == "" {
		return domain.Profile{}, domain.ErrNotAuthenticated
	}

	profile, err = s.gateway.FetchProfile(ctx, session.UserID)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Warn("cache profile", zap.Error(err))
	}

	return profile, nil
}

func (s *Service) Status(ctx context.Context) SessionStatus {
	session := s.sessions.Read()
	status := SessionStatus{
		UserID:          session.UserID,
		DeviceID:        session.DeviceID,
		IsAuthenticated: session.IsAuthenticated,
		HasToken:        session.HasToken(),
		LastError:       session.LastError,
	}

	if expiresAt, ok := TokenExpiry(session.AccessToken); ok {
		status.ExpiresAt = expiresAt
		status.Expired = !s.clock.Now().Before(expiresAt)
	}

	if profile, err := s.profiles.Load(ctx); err == nil {
		status.Profile = &profile
	}

	return status
}

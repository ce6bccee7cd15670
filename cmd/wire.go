package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	statusadapter "github.com/bnema/coachsync/internal/adapters/render/status"
	"github.com/bnema/coachsync/internal/adapters/realtime/pgnotify"
	"github.com/bnema/coachsync/internal/adapters/realtime/ws"
	postgresrepo "github.com/bnema/coachsync/internal/adapters/repo/postgres"
	supabaserepo "github.com/bnema/coachsync/internal/adapters/repo/supabase"
	tomlrepo "github.com/bnema/coachsync/internal/adapters/repo/toml"
	"github.com/bnema/coachsync/internal/adapters/rest"
	chainstore "github.com/bnema/coachsync/internal/adapters/secrets/chain"
	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/config"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	cfg            config.Config
	logger         *zap.Logger
	secretStore    ports.SecretStore
	state          *tomlrepo.Repository
	sessions       *application.SessionStore
	api            *rest.Client
	service        *application.Service
	statusRenderer func(statusadapter.View, statusadapter.RenderOptions) (string, error)
	clock          ports.Clock
	now            func() time.Time

	readyOnce sync.Once
	readyErr  error
}

func wireApp() (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	v := config.New()
	if err := config.Read(v); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.SecretsDir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	state, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	sessions := application.NewSessionStore(state.Sessions(), secretStore, logger.Named("session"))

	var (
		gateway ports.AuthGateway = offlineGateway{secrets: secretStore, err: cfg.RequireAPI()}
		api     *rest.Client
	)
	if cfg.API.BaseURL != "" {
		api, err = rest.NewClient(rest.Options{
			BaseURL:        cfg.API.BaseURL,
			DeviceType:     cfg.API.DeviceType,
			RequestTimeout: cfg.API.Timeout,
			Session:        sessions,
			Secrets:        secretStore,
			Logger:         logger.Named("rest"),
		})
		if err != nil {
			return nil, fmt.Errorf("wire rest client: %w", err)
		}
		gateway = api
	}

	clock := ports.SystemClock{}
	service := application.NewService(gateway, sessions, state.Profiles(), clock, logger.Named("auth"))
	if api != nil {
		api.OnForcedLogout(service.Logout)
	}

	return &app{
		cfg:            cfg,
		logger:         logger,
		secretStore:    secretStore,
		state:          state,
		sessions:       sessions,
		api:            api,
		service:        service,
		statusRenderer: statusadapter.Render,
		clock:          clock,
		now:            time.Now,
	}, nil
}

// ready rehydrates the session and restores the refresh cookie once.
func (a *app) ready(ctx context.Context) error {
	a.readyOnce.Do(func() {
		if err := a.sessions.Rehydrate(ctx); err != nil {
			a.readyErr = fmt.Errorf("rehydrate session: %w", err)
			return
		}
		if a.api != nil {
			if err := a.api.RestoreCookies(ctx); err != nil {
				a.logger.Warn("restore session cookies", zap.Error(err))
			}
		}
	})
	return a.readyErr
}

func (a *app) requireAPI() (*rest.Client, error) {
	if a.api == nil {
		return nil, a.cfg.RequireAPI()
	}
	return a.api, nil
}

func (a *app) accessToken() string {
	return a.sessions.Read().AccessToken
}

// chatStack is the chat repository, realtime transport and unread tracker
// for one command run.
type chatStack struct {
	chat    *application.ChatService
	tracker *application.UnreadTracker
	cancel  context.CancelFunc
	closers []func() error
}

func (s *chatStack) Close() error {
	s.cancel()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) openChat(ctx context.Context) (*chatStack, error) {
	if err := a.cfg.RequireChat(); err != nil {
		return nil, err
	}

	stackCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stack := &chatStack{cancel: cancel}
	fail := func(err error) (*chatStack, error) {
		_ = stack.Close()
		return nil, err
	}

	var db *sql.DB
	if a.cfg.Chat.Backend == config.BackendPostgres || a.cfg.Realtime.Transport == config.TransportPgNotify {
		opened, err := postgresrepo.Open(ctx, a.cfg.Database.URL, a.logger.Named("postgres"))
		if err != nil {
			return fail(err)
		}
		db = opened
		stack.closers = append(stack.closers, db.Close)
	}

	var repo ports.ChatRepository
	switch a.cfg.Chat.Backend {
	case config.BackendPostgres:
		repo = postgresrepo.NewChatRepository(db, a.logger.Named("postgres"))
	default:
		opts := supabaserepo.Options{
			URL:         a.cfg.Supabase.URL,
			APIKey:      a.cfg.Supabase.AnonKey,
			AccessToken: a.accessToken,
			Timeout:     a.cfg.API.Timeout,
			Logger:      a.logger.Named("postgrest"),
		}
		if a.api != nil {
			opts.HTTPClient = a.api.HTTPClient()
		}
		supabase, err := supabaserepo.NewChatRepository(opts)
		if err != nil {
			return fail(fmt.Errorf("wire chat repository: %w", err))
		}
		repo = supabase
	}

	var transport ports.RealtimeTransport
	switch a.cfg.Realtime.Transport {
	case config.TransportPgNotify:
		listener, err := pgnotify.NewTransport(a.cfg.Database.URL, db, a.logger.Named("pgnotify"))
		if err != nil {
			return fail(fmt.Errorf("wire realtime transport: %w", err))
		}
		transport = listener
		stack.closers = append(stack.closers, listener.Close)
	default:
		socket, err := ws.NewClient(ws.Config{
			URL:               a.cfg.Realtime.URL,
			APIKey:            a.cfg.Supabase.AnonKey,
			AccessToken:       a.accessToken,
			HeartbeatInterval: a.cfg.Realtime.Heartbeat,
			JoinTimeout:       a.cfg.Realtime.JoinTimeout,
			Logger:            a.logger.Named("realtime"),
		})
		if err != nil {
			return fail(fmt.Errorf("wire realtime transport: %w", err))
		}
		transport = socket
		stack.closers = append(stack.closers, socket.Close)
	}

	stack.tracker = application.NewUnreadTracker(repo, transport, a.clock, application.TrackerConfig{
		PollInterval:     a.cfg.Unread.PollInterval,
		ReconnectDelay:   a.cfg.Unread.ReconnectDelay,
		WatchdogInterval: a.cfg.Unread.WatchdogInterval,
		StaleAfter:       a.cfg.Unread.StaleAfter,
	}, a.logger.Named("unread"))

	stack.chat = application.NewChatService(a.sessions, repo, transport, stack.tracker, a.clock, a.logger.Named("chat"))
	stack.chat.SetTypingTimings(a.cfg.Typing.KeepAlive, a.cfg.Typing.Idle, a.cfg.Typing.TTL)

	// Forced logout runs inside an HTTP round trip, so the tracker is told
	// asynchronously.
	tracker := stack.tracker
	a.service.OnIdentityChange(func(user domain.UserID) {
		go func() {
			if err := tracker.SetIdentity(stackCtx, user); err != nil {
				a.logger.Debug("tracker identity update dropped", zap.Error(err))
			}
		}()
	})

	return stack, nil
}

func newLogger(level string) (*zap.Logger, error) {
	parsed := zapcore.WarnLevel
	if level != "" {
		if err := parsed.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", config.KeyLogLevel, err)
		}
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// offlineGateway stands in for the REST client when no backend is configured.
// Sign-in fails with err; logout still drops any stored cookie.
type offlineGateway struct {
	secrets ports.SecretStore
	err     error
}

var _ ports.AuthGateway = offlineGateway{}

func (g offlineGateway) Login(context.Context, ports.Credentials) (ports.LoginResult, error) {
	return ports.LoginResult{}, g.err
}

func (g offlineGateway) FetchProfile(context.Context, domain.UserID) (domain.Profile, error) {
	return domain.Profile{}, g.err
}

func (g offlineGateway) RegisterPushToken(context.Context, string) error {
	return g.err
}

func (g offlineGateway) ForgetCookies(ctx context.Context) error {
	err := g.secrets.Delete(ctx, rest.CookieSecretKey)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return err
	}
	return nil
}

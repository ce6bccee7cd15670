package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "COACH"
	Dir       = ".coach"

	KeyAPIBaseURL        = "api.base_url"
	KeyAPIDeviceType     = "api.device_type"
	KeyAPITimeout        = "api.timeout"
	KeySupabaseURL       = "supabase.url"
	KeySupabaseAnonKey   = "supabase.anon_key"
	KeyDatabaseURL       = "database.url"
	KeyChatBackend       = "chat.backend"
	KeyRealtimeTransport = "realtime.transport"
	KeyRealtimeURL       = "realtime.url"
	KeyHeartbeat         = "realtime.heartbeat"
	KeyJoinTimeout       = "realtime.join_timeout"
	KeyPollInterval      = "unread.poll_interval"
	KeyReconnectDelay    = "unread.reconnect_delay"
	KeyWatchdogInterval  = "unread.watchdog_interval"
	KeyStaleAfter        = "unread.stale_after"
	KeyTypingKeepAlive   = "typing.keep_alive"
	KeyTypingIdle        = "typing.idle"
	KeyTypingTTL         = "typing.ttl"
	KeyStatePath         = "state.path"
	KeySecretsDir        = "secrets.dir"
	KeyPassPrefix        = "secrets.pass_prefix"
	KeyLogLevel          = "log.level"
	KeyPushToken         = "push.token"

	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	TransportWebsocket = "websocket"
	TransportPgNotify  = "pgnotify"
)

type Config struct {
	API      APIConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	Chat     ChatConfig
	Realtime RealtimeConfig
	Unread   UnreadConfig
	Typing   TypingConfig

	StatePath  string
	SecretsDir string
	PassPrefix string
	LogLevel   string
	PushToken  string
}

type APIConfig struct {
	BaseURL    string
	DeviceType string
	Timeout    time.Duration
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

type DatabaseConfig struct {
	URL string
}

type ChatConfig struct {
	Backend string
}

type RealtimeConfig struct {
	Transport   string
	URL         string
	Heartbeat   time.Duration
	JoinTimeout time.Duration
}

type UnreadConfig struct {
	PollInterval     time.Duration
	ReconnectDelay   time.Duration
	WatchdogInterval time.Duration
	StaleAfter       time.Duration
}

type TypingConfig struct {
	KeepAlive time.Duration
	Idle      time.Duration
	TTL       time.Duration
}

// New returns a viper instance with defaults, COACH_* env overrides and the
// config file search path (~/.coach/config.toml, then ./config.toml).
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, Dir))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIDeviceType, "mobile")
	v.SetDefault(KeyAPITimeout, 30*time.Second)
	v.SetDefault(KeyChatBackend, BackendSupabase)
	v.SetDefault(KeyRealtimeTransport, TransportWebsocket)
	v.SetDefault(KeyHeartbeat, 25*time.Second)
	v.SetDefault(KeyJoinTimeout, 10*time.Second)
	v.SetDefault(KeyPollInterval, 10*time.Second)
	v.SetDefault(KeyReconnectDelay, 5*time.Second)
	v.SetDefault(KeyWatchdogInterval, 60*time.Second)
	v.SetDefault(KeyStaleAfter, 120*time.Second)
	v.SetDefault(KeyTypingKeepAlive, 3*time.Second)
	v.SetDefault(KeyTypingIdle, 3*time.Second)
	v.SetDefault(KeyTypingTTL, 3*time.Second)
	v.SetDefault(KeyPassPrefix, "coach")
	v.SetDefault(KeyLogLevel, "warn")
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// skipped and existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Read merges the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		API: APIConfig{
			BaseURL:    strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
			DeviceType: v.GetString(KeyAPIDeviceType),
			Timeout:    v.GetDuration(KeyAPITimeout),
		},
		Supabase: SupabaseConfig{
			URL:     strings.TrimSpace(v.GetString(KeySupabaseURL)),
			AnonKey: v.GetString(KeySupabaseAnonKey),
		},
		Database: DatabaseConfig{URL: strings.TrimSpace(v.GetString(KeyDatabaseURL))},
		Chat:     ChatConfig{Backend: strings.ToLower(v.GetString(KeyChatBackend))},
		Realtime: RealtimeConfig{
			Transport:   strings.ToLower(v.GetString(KeyRealtimeTransport)),
			URL:         strings.TrimSpace(v.GetString(KeyRealtimeURL)),
			Heartbeat:   v.GetDuration(KeyHeartbeat),
			JoinTimeout: v.GetDuration(KeyJoinTimeout),
		},
		Unread: UnreadConfig{
			PollInterval:     v.GetDuration(KeyPollInterval),
			ReconnectDelay:   v.GetDuration(KeyReconnectDelay),
			WatchdogInterval: v.GetDuration(KeyWatchdogInterval),
			StaleAfter:       v.GetDuration(KeyStaleAfter),
		},
		Typing: TypingConfig{
			KeepAlive: v.GetDuration(KeyTypingKeepAlive),
			Idle:      v.GetDuration(KeyTypingIdle),
			TTL:       v.GetDuration(KeyTypingTTL),
		},
		StatePath:  v.GetString(KeyStatePath),
		SecretsDir: v.GetString(KeySecretsDir),
		PassPrefix: v.GetString(KeyPassPrefix),
		LogLevel:   v.GetString(KeyLogLevel),
		PushToken:  v.GetString(KeyPushToken),
	}

	if cfg.SecretsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.SecretsDir = filepath.Join(home, Dir, "secrets")
	}
	if cfg.Realtime.URL == "" && cfg.Supabase.URL != "" {
		realtimeURL, err := RealtimeURLFor(cfg.Supabase.URL)
		if err != nil {
			return Config{}, err
		}
		cfg.Realtime.URL = realtimeURL
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend selections and that every interval is positive.
// Endpoint URLs are checked by the adapters that use them.
func (c Config) Validate() error {
	var errs []error

	switch c.Chat.Backend {
	case BackendSupabase, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", KeyChatBackend, BackendSupabase, BackendPostgres, c.Chat.Backend))
	}
	switch c.Realtime.Transport {
	case TransportWebsocket, TransportPgNotify:
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", KeyRealtimeTransport, TransportWebsocket, TransportPgNotify, c.Realtime.Transport))
	}

	durations := []struct {
		key   string
		value time.Duration
	}{
		{KeyAPITimeout, c.API.Timeout},
		{KeyHeartbeat, c.Realtime.Heartbeat},
		{KeyJoinTimeout, c.Realtime.JoinTimeout},
		{KeyPollInterval, c.Unread.PollInterval},
		{KeyReconnectDelay, c.Unread.ReconnectDelay},
		{KeyWatchdogInterval, c.Unread.WatchdogInterval},
		{KeyStaleAfter, c.Unread.StaleAfter},
		{KeyTypingKeepAlive, c.Typing.KeepAlive},
		{KeyTypingIdle, c.Typing.Idle},
		{KeyTypingTTL, c.Typing.TTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.key, d.value))
		}
	}

	return errors.Join(errs...)
}

// RequireAPI reports a missing REST backend address.
func (c Config) RequireAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%s is not set (env %s)", KeyAPIBaseURL, EnvName(KeyAPIBaseURL))
	}
	return nil
}

// RequireChat reports missing settings for the selected chat backend and
// realtime transport.
func (c Config) RequireChat() error {
	var errs []error

	switch c.Chat.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			errs = append(errs, fmt.Errorf("%s and %s are required for the supabase backend", KeySupabaseURL, KeySupabaseAnonKey))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the postgres backend", KeyDatabaseURL))
		}
	}

	switch c.Realtime.Transport {
	case TransportWebsocket:
		if c.Realtime.URL == "" {
			errs = append(errs, fmt.Errorf("%s or %s is required for the websocket transport", KeyRealtimeURL, KeySupabaseURL))
		}
	case TransportPgNotify:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the pgnotify transport", KeyDatabaseURL))
		}
	}

	return errors.Join(errs...)
}

// RealtimeURLFor derives the realtime websocket endpoint of a Supabase project.
func RealtimeURLFor(projectURL string) (string, error) {
	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", KeySupabaseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%s must use http or https", KeySupabaseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	u.RawQuery = ""
	return u.String(), nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

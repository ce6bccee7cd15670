package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	v.Set(KeySecretsDir, t.TempDir())
	return v
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, "mobile", cfg.API.DeviceType)
	assert.Equal(t, BackendSupabase, cfg.Chat.Backend)
	assert.Equal(t, TransportWebsocket, cfg.Realtime.Transport)
	assert.Equal(t, 10*time.Second, cfg.Unread.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Unread.ReconnectDelay)
	assert.Equal(t, 60*time.Second, cfg.Unread.WatchdogInterval)
	assert.Equal(t, 120*time.Second, cfg.Unread.StaleAfter)
	assert.Equal(t, 3*time.Second, cfg.Typing.KeepAlive)
	assert.Equal(t, 3*time.Second, cfg.Typing.Idle)
}

func TestLoadDerivesRealtimeURL(t *testing.T) {
	t.Parallel()

	v := newTestViper(t)
	v.Set(KeySupabaseURL, "https://demo.supabase.co/")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "wss://demo.supabase.co/realtime/v1/websocket", cfg.Realtime.URL)

	v.Set(KeyRealtimeURL, "ws://localhost:4000/socket")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:4000/socket", cfg.Realtime.URL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{name: "unknown backend", key: KeyChatBackend, val: "mysql", want: KeyChatBackend},
		{name: "unknown transport", key: KeyRealtimeTransport, val: "sse", want: KeyRealtimeTransport},
		{name: "zero poll interval", key: KeyPollInterval, val: "0s", want: KeyPollInterval},
		{name: "negative stale", key: KeyStaleAfter, val: "-1s", want: KeyStaleAfter},
		{name: "bad supabase scheme", key: KeySupabaseURL, val: "ftp://demo", want: "http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newTestViper(t)
			v.Set(tt.key, tt.val)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvOverridesUsePrefix(t *testing.T) {
	t.Setenv("COACH_API_BASE_URL", "https://api.example.test")
	t.Setenv("COACH_UNREAD_POLL_INTERVAL", "2s")
	t.Setenv("COACH_SECRETS_DIR", t.TempDir())

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Unread.PollInterval)
	assert.Equal(t, "COACH_API_BASE_URL", EnvName(KeyAPIBaseURL))
}

func TestReadMergesConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[chat]
backend = "postgres"

[database]
url = "postgres://coach@localhost/chat"

[typing]
idle = "5s"
`), 0o600))

	v := newTestViper(t)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	require.NoError(t, Read(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Chat.Backend)
	assert.Equal(t, "postgres://coach@localhost/chat", cfg.Database.URL)
	assert.Equal(t, 5*time.Second, cfg.Typing.Idle)
}

func TestReadIgnoresMissingFile(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(t.TempDir())

	require.NoError(t, Read(v))
}

func TestRequireChatNamesMissingSettings(t *testing.T) {
	t.Parallel()

	cfg, err := Load(newTestViper(t))
	require.NoError(t, err)

	err = cfg.RequireChat()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeySupabaseURL)
	assert.Contains(t, err.Error(), KeyRealtimeURL)

	cfg.Chat.Backend = BackendPostgres
	cfg.Realtime.Transport = TransportPgNotify
	cfg.Database.URL = "postgres://coach@localhost/chat"
	require.NoError(t, cfg.RequireChat())

	require.Error(t, cfg.RequireAPI())
}

func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COACH_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("COACH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("COACH_TEST_DOTENV"))
}

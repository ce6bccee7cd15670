package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, statePath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set(StatePathKey, statePath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositorySessionRoundTripOmitsAccessToken(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repo := newTestRepository(t, statePath)

	session := domain.Session{
		AccessToken:     "T1",
		DeviceID:        "device-1",
		UserID:          "user-1",
		IsAuthenticated: true,
	}
	require.NoError(t, repo.Sessions().Save(context.Background(), session))

	got, err := repo.Sessions().Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.AccessToken)
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, domain.UserID("user-1"), got.UserID)
	assert.True(t, got.IsAuthenticated)

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "T1")
	assert.Contains(t, string(data), "version = 1")
}

func TestRepositoryProfileAndSessionShareFile(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repo := newTestRepository(t, statePath)
	ctx := context.Background()

	require.NoError(t, repo.Sessions().Save(ctx, domain.Session{DeviceID: "device-1", IsAuthenticated: true}))
	require.NoError(t, repo.Profiles().Save(ctx, domain.Profile{ID: "user-1", Email: "ana@example.com", FirstName: "Ana"}))

	require.NoError(t, repo.Sessions().Clear(ctx))

	_, err := repo.Sessions().Load(ctx)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	profile, err := repo.Profiles().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.FirstName)

	require.NoError(t, repo.Profiles().Clear(ctx))
	_, err = repo.Profiles().Load(ctx)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "state.toml"))

	_, err := repo.Sessions().Load(context.Background())
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = repo.Profiles().Load(context.Background())
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	require.NoError(t, repo.Sessions().Clear(context.Background()))
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Sessions().Save(context.Background(), domain.Session{DeviceID: "device-1"}))

	info, err := os.Stat(filepath.Join(homeDir, ".coach", "state.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("session = ["), 0o600))

	_, err := newTestRepository(t, statePath).Sessions().Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode state file")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 999",
		"",
	}, "\n")), 0o600))

	_, err := newTestRepository(t, statePath).Profiles().Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported state schema version")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Sessions().Save(ctx, domain.Session{DeviceID: "device-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentWritesAcrossInstancesKeepBothSections(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repoA := newTestRepository(t, statePath)
	repoB := newTestRepository(t, statePath)

	const writes = 50
	start := make(chan struct{})
	errCh := make(chan error, writes*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < writes; i++ {
			errCh <- repoA.Sessions().Save(context.Background(), domain.Session{DeviceID: "device-1", IsAuthenticated: true})
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < writes; i++ {
			errCh <- repoB.Profiles().Save(context.Background(), domain.Profile{ID: "user-1"})
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	_, err := repoA.Sessions().Load(context.Background())
	require.NoError(t, err)
	_, err = repoA.Profiles().Load(context.Background())
	require.NoError(t, err)
}

package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	StatePathKey    = "state.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".coach"
	stateConfigFile = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

// Repository is the durable device-local state file. Sessions and Profiles
// expose the two port views that share it.
type Repository struct {
	statePath string
	mu        *sync.RWMutex
	now       func() time.Time
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	statePath := cfg.GetString(StatePathKey)
	if statePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		statePath = filepath.Join(homeDir, stateConfigDir, stateConfigFile)
	}

	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{statePath: absPath, mu: lockForPath(absPath), now: time.Now}, nil
}

func (r *Repository) Path() string {
	return r.statePath
}

func (r *Repository) Sessions() ports.SessionRepository {
	return sessionView{repo: r}
}

func (r *Repository) Profiles() ports.ProfileCache {
	return profileView{repo: r}
}

type sessionView struct {
	repo *Repository
}

var _ ports.SessionRepository = sessionView{}

func (v sessionView) Load(ctx context.Context) (domain.Session, error) {
	file, err := v.repo.read(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if file.Session == nil {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	return fromSessionSchema(*file.Session), nil
}

func (v sessionView) Save(ctx context.Context, session domain.Session) error {
	return v.repo.update(ctx, func(file *fileSchema) {
		encoded := toSessionSchema(session)
		encoded.UpdatedAt = formatTime(v.repo.now())
		file.Session = &encoded
	})
}

func (v sessionView) Clear(ctx context.Context) error {
	return v.repo.update(ctx, func(file *fileSchema) {
		file.Session = nil
	})
}

type profileView struct {
	repo *Repository
}

var _ ports.ProfileCache = profileView{}

func (v profileView) Load(ctx context.Context) (domain.Profile, error) {
	file, err := v.repo.read(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if file.Profile == nil {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	return fromProfileSchema(*file.Profile), nil
}

func (v profileView) Save(ctx context.Context, profile domain.Profile) error {
	return v.repo.update(ctx, func(file *fileSchema) {
		encoded := toProfileSchema(profile)
		encoded.CachedAt = formatTime(v.repo.now())
		file.Profile = &encoded
	})
}

func (v profileView) Clear(ctx context.Context) error {
	return v.repo.update(ctx, func(file *fileSchema) {
		file.Profile = nil
	})
}

func (r *Repository) read(ctx context.Context) (fileSchema, error) {
	if err := ctx.Err(); err != nil {
		return fileSchema{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readSchema()
}

func (r *Repository) update(ctx context.Context, mutate func(*fileSchema)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	mutate(&file)

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, r.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false
	return nil
}

func toSessionSchema(session domain.Session) sessionSchema {
	return sessionSchema{
		DeviceID:        session.DeviceID,
		UserID:          string(session.UserID),
		IsAuthenticated: session.IsAuthenticated,
		LastError:       session.LastError,
	}
}

func fromSessionSchema(session sessionSchema) domain.Session {
	return domain.Session{
		DeviceID:        session.DeviceID,
		UserID:          domain.UserID(session.UserID),
		IsAuthenticated: session.IsAuthenticated,
		LastError:       session.LastError,
	}
}

func toProfileSchema(profile domain.Profile) profileSchema {
	return profileSchema{
		ID:        string(profile.ID),
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      profile.Role,
	}
}

func fromProfileSchema(profile profileSchema) domain.Profile {
	return domain.Profile{
		ID:        domain.UserID(profile.ID),
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      profile.Role,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}

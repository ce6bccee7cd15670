package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Session *sessionSchema `toml:"session,omitempty"`
	Profile *profileSchema `toml:"profile,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// sessionSchema never carries the access token; that lives in the secret store.
type sessionSchema struct {
	DeviceID        string `toml:"device_id"`
	UserID          string `toml:"user_id"`
	IsAuthenticated bool   `toml:"is_authenticated"`
	LastError       string `toml:"last_error,omitempty"`
	UpdatedAt       string `toml:"updated_at"`
}

type profileSchema struct {
	ID        string `toml:"id"`
	Email     string `toml:"email"`
	FirstName string `toml:"first_name,omitempty"`
	LastName  string `toml:"last_name,omitempty"`
	Role      string `toml:"role,omitempty"`
	CachedAt  string `toml:"cached_at"`
}

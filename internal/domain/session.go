package domain

import "strings"

type UserID string

// Session is the credential bundle the client sends with every backend request.
type Session struct {
	AccessToken     string
	DeviceID        string
	UserID          UserID
	IsAuthenticated bool
	LastError       string
}

// SessionPatch is a partial Session update. Nil fields are left untouched.
type SessionPatch struct {
	AccessToken     *string
	DeviceID        *string
	UserID          *UserID
	IsAuthenticated *bool
	LastError       *string
}

func (s Session) HasToken() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

func (s Session) Apply(patch SessionPatch) Session {
	if patch.AccessToken != nil {
		s.AccessToken = *patch.AccessToken
	}
	if patch.DeviceID != nil {
		s.DeviceID = *patch.DeviceID
	}
	if patch.UserID != nil {
		s.UserID = *patch.UserID
	}
	if patch.IsAuthenticated != nil {
		s.IsAuthenticated = *patch.IsAuthenticated
	}
	if patch.LastError != nil {
		s.LastError = *patch.LastError
	}

	return s
}

type Profile struct {
	ID        UserID `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if p.Email != "" {
		return p.Email
	}

	return string(p.ID)
}

func Ptr[T any](v T) *T {
	return &v
}

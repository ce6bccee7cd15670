package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("session refresh failed")
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrNoRoom           = errors.New("room id is required")
)

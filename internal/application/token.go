package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// The client never holds the signing key, so tokens are read without
// verification. The backend remains the authority on validity.
var tokenParser = jwt.NewParser()

func UserIDFromToken(token string) (domain.UserID, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return "", err
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read token subject: %w", err)
	}
	if subject == "" {
		return "", errors.New("access token has no subject")
	}

	return domain.UserID(subject), nil
}

// TokenExpiry returns the exp claim. ok is false when the token carries none.
func TokenExpiry(token string) (expiresAt time.Time, ok bool) {
	claims, err := parseClaims(token)
	if err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

func parseClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	return claims, nil
}

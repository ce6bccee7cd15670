package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
)

const CookieSecretKey = "coach://session/cookies"

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// sessionJar is a resettable cookie jar scoped to the backend origin whose
// contents can be saved to and restored from the secret store.
type sessionJar struct {
	mu     sync.Mutex
	inner  *cookiejar.Jar
	origin *url.URL
	store  ports.SecretStore
}

var _ http.CookieJar = (*sessionJar)(nil)

func newSessionJar(origin *url.URL, store ports.SecretStore) *sessionJar {
	inner, _ := cookiejar.New(nil)
	return &sessionJar{inner: inner, origin: origin, store: store}
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *sessionJar) save(ctx context.Context) error {
	if j.store == nil {
		return nil
	}

	cookies := j.Cookies(j.origin)
	if len(cookies) == 0 {
		return nil
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, cookie := range cookies {
		stored = append(stored, storedCookie{Name: cookie.Name, Value: cookie.Value})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session cookies: %w", err)
	}
	if err := j.store.Put(ctx, CookieSecretKey, string(data)); err != nil {
		return fmt.Errorf("store session cookies: %w", err)
	}

	return nil
}

func (j *sessionJar) restore(ctx context.Context) error {
	if j.store == nil {
		return nil
	}

	raw, err := j.store.Get(ctx, CookieSecretKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return nil
		}
		return fmt.Errorf("load session cookies: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode session cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, cookie := range stored {
		cookies = append(cookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value, Path: "/"})
	}
	j.SetCookies(j.origin, cookies)

	return nil
}

func (j *sessionJar) reset(ctx context.Context) error {
	inner, _ := cookiejar.New(nil)

	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()

	if j.store == nil {
		return nil
	}
	if err := j.store.Delete(ctx, CookieSecretKey); err != nil {
		return fmt.Errorf("delete session cookies: %w", err)
	}

	return nil
}

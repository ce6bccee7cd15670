package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memorySession struct {
	mu      sync.Mutex
	session domain.Session
	writes  int
}

func (m *memorySession) Read() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *memorySession) Write(_ context.Context, patch domain.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = m.session.Apply(patch)
	m.writes++
	return nil
}

func (m *memorySession) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.Session{}
}

type backend struct {
	mu           sync.Mutex
	validToken   string
	refreshToken string
	refreshCalls atomic.Int32
	refreshGate  func()
	refreshFail  int
	served       []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "cookie-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accessToken":"T1","deviceId":"device-1","user":{"id":"user-1","email":"ana@example.com","firstName":"Ana"}}`))
	})
	mux.HandleFunc("/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "device-1", r.Header.Get(HeaderDeviceID))
		assert.Empty(t, r.Header.Get("Authorization"))
		if b.refreshGate != nil {
			b.refreshGate()
		}
		if b.refreshFail != 0 {
			w.WriteHeader(b.refreshFail)
			_, _ = w.Write([]byte(`{"message":"refresh token expired"}`))
			return
		}
		cookie, err := r.Cookie("sid")
		if assert.NoError(t, err) {
			assert.Equal(t, "cookie-1", cookie.Value)
		}

		b.mu.Lock()
		b.validToken = b.refreshToken
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"accessToken":"` + b.refreshToken + `"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mobile", r.Header.Get(HeaderDeviceType))

		b.mu.Lock()
		valid := r.Header.Get("Authorization") == "Bearer "+b.validToken
		if valid {
			b.served = append(b.served, r.URL.Path)
		}
		b.mu.Unlock()

		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `","body":"` + strings.ReplaceAll(string(body), `"`, `'`) + `"}`))
	})
	return mux
}

func newTestClient(t *testing.T, b *backend) (*Client, *memorySession) {
	t.Helper()

	server := httptest.NewServer(b.handler(t))
	t.Cleanup(server.Close)

	session := &memorySession{}
	client, err := NewClient(Options{
		BaseURL:   server.URL,
		Session:   session,
		Transport: server.Client().Transport,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	result, err := client.Login(context.Background(), loginCreds())
	require.NoError(t, err)
	require.NoError(t, session.Write(context.Background(), domain.SessionPatch{
		AccessToken:     domain.Ptr(result.AccessToken),
		DeviceID:        domain.Ptr(result.DeviceID),
		IsAuthenticated: domain.Ptr(true),
	}))

	return client, session
}

type echo struct {
	Path string `json:"path"`
	Body string `json:"body"`
}

func TestCoordinatorRefreshesAndRetriesWithNewToken(t *testing.T) {
	t.Parallel()

	b := &backend{validToken: "T0", refreshToken: "T2"}
	client, session := newTestClient(t, b)

	var got echo
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/events", nil, &got))

	assert.Equal(t, "/events", got.Path)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, "T2", session.Read().AccessToken)
	assert.False(t, client.RefreshState().InFlight())
}

func TestCoordinatorReplaysRequestBody(t *testing.T) {
	t.Parallel()

	b := &backend{validToken: "T0", refreshToken: "T2"}
	client, _ := newTestClient(t, b)

	var got echo
	require.NoError(t, client.Do(context.Background(), http.MethodPost, "/events", map[string]string{"title": "yoga"}, &got))

	assert.Equal(t, "{'title':'yoga'}", got.Body)
}

func TestCoordinatorConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()

	b := &backend{validToken: "T0", refreshToken: "T2"}
	var client *Client
	b.refreshGate = func() {
		assert.Eventually(t, func() bool {
			return client.RefreshState().Pending() == 1
		}, 2*time.Second, 5*time.Millisecond)
	}
	client, _ = newTestClient(t, b)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, path := range []string{"/events", "/professionals"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), http.MethodGet, path, nil, nil)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.ElementsMatch(t, []string{"/events", "/professionals"}, b.served)
}

func TestCoordinatorReplaysQueuedRequestsInArrivalOrder(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := &backend{validToken: "T0", refreshToken: "T2"}
	b.refreshGate = func() { <-release }
	client, _ := newTestClient(t, b)

	var wg sync.WaitGroup
	do := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Do(context.Background(), http.MethodGet, path, nil, nil))
		}()
	}

	do("/a")
	require.Eventually(t, client.RefreshState().InFlight, 2*time.Second, 5*time.Millisecond)
	do("/b")
	require.Eventually(t, func() bool { return client.RefreshState().Pending() == 1 }, 2*time.Second, 5*time.Millisecond)
	do("/c")
	require.Eventually(t, func() bool { return client.RefreshState().Pending() == 2 }, 2*time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"/b", "/c", "/a"}, b.served)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
}

func TestCoordinatorRefreshFailureForcesLogoutAndRejectsQueue(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := &backend{validToken: "T0", refreshFail: http.StatusUnauthorized}
	b.refreshGate = func() { <-release }
	client, session := newTestClient(t, b)

	var loggedOut atomic.Bool
	client.OnForcedLogout(func(context.Context) error {
		session.clear()
		loggedOut.Store(true)
		return nil
	})

	errs := make(chan error, 2)
	go func() { errs <- client.Do(context.Background(), http.MethodGet, "/events", nil, nil) }()
	require.Eventually(t, client.RefreshState().InFlight, 2*time.Second, 5*time.Millisecond)
	go func() { errs <- client.Do(context.Background(), http.MethodGet, "/notifications", nil, nil) }()
	require.Eventually(t, func() bool { return client.RefreshState().Pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	close(release)

	for range 2 {
		err := <-errs
		require.ErrorIs(t, err, domain.ErrRefreshFailed)
	}

	assert.True(t, loggedOut.Load())
	assert.False(t, session.Read().IsAuthenticated)
	assert.Empty(t, session.Read().AccessToken)
	assert.False(t, client.RefreshState().InFlight())
	assert.Zero(t, client.RefreshState().Pending())
}

func TestCoordinatorCallerTimeoutDoesNotAbortRefresh(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := &backend{validToken: "T0", refreshToken: "T2"}
	b.refreshGate = func() { <-release }
	client, session := newTestClient(t, b)

	var loggedOut atomic.Bool
	client.OnForcedLogout(func(context.Context) error {
		loggedOut.Store(true)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	callerErr := make(chan error, 1)
	go func() { callerErr <- client.Do(ctx, http.MethodGet, "/events", nil, nil) }()
	require.Eventually(t, client.RefreshState().InFlight, 2*time.Second, 5*time.Millisecond)

	queued := make(chan error, 1)
	var got echo
	go func() { queued <- client.Do(context.Background(), http.MethodGet, "/notifications", nil, &got) }()
	require.Eventually(t, func() bool { return client.RefreshState().Pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	err := <-callerErr
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrRefreshFailed)

	close(release)

	require.NoError(t, <-queued)
	assert.Equal(t, "/notifications", got.Path)
	assert.False(t, loggedOut.Load())
	assert.Equal(t, "T2", session.Read().AccessToken)
	assert.True(t, session.Read().IsAuthenticated)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	require.Eventually(t, func() bool { return !client.RefreshState().InFlight() }, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinatorReturnsSecondUnauthorizedUnchanged(t *testing.T) {
	t.Parallel()

	var auths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	var calls atomic.Int32
	session := &memorySession{session: domain.Session{AccessToken: "T1"}}
	coordinator := NewCoordinator(server.Client().Transport, session, refresherFunc(func(context.Context) (string, error) {
		calls.Add(1)
		return "T2", nil
	}), nil)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := coordinator.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, auths)
}

func TestCoordinatorPassesThroughNonUnauthorized(t *testing.T) {
	t.Parallel()

	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	coordinator := NewCoordinator(server.Client().Transport, &memorySession{session: domain.Session{AccessToken: "T1", DeviceID: "device-1"}}, refresherFunc(func(context.Context) (string, error) {
		t.Fatal("refresh must not run")
		return "", nil
	}), nil)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := coordinator.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Bearer T1", seen.Get("Authorization"))
	assert.Equal(t, "device-1", seen.Get(HeaderDeviceID))
	assert.Equal(t, DefaultDeviceType, seen.Get(HeaderDeviceType))
}

type refresherFunc func(ctx context.Context) (string, error)

func (f refresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"go.uber.org/zap"
)

const defaultRefreshTimeout = 30 * time.Second

const (
	HeaderDeviceID    = "X-Device-Id"
	HeaderDeviceType  = "X-Device-Type"
	DefaultDeviceType = "mobile"
)

// SessionSource is the read/write view of the session the coordinator needs.
type SessionSource interface {
	Read() domain.Session
	Write(ctx context.Context, patch domain.SessionPatch) error
}

// Refresher exchanges the refresh cookie for a new access token.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefreshState tracks the single in-flight refresh and the requests parked
// behind it. Share one instance per coordinator.
type RefreshState struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []*waiter
}

func (s *RefreshState) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *RefreshState) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

type waiter struct {
	req  *http.Request
	done chan result
}

type result struct {
	resp *http.Response
	err  error
}

type retriedKey struct{}

func markRetried(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), retriedKey{}, true))
}

func wasRetried(req *http.Request) bool {
	retried, _ := req.Context().Value(retriedKey{}).(bool)
	return retried
}

// Coordinator is an http.RoundTripper that attaches session credentials and
// recovers from 401 responses with a single shared token refresh.
type Coordinator struct {
	Base       http.RoundTripper
	Session    SessionSource
	Refresher  Refresher
	State      *RefreshState
	DeviceType string
	// RefreshTimeout bounds the refresh call, which runs detached from the
	// request that triggered it.
	RefreshTimeout time.Duration
	// OnLogout runs after an irrecoverable refresh failure.
	OnLogout func(ctx context.Context) error
	Logger   *zap.Logger
}

var _ http.RoundTripper = (*Coordinator)(nil)

func NewCoordinator(base http.RoundTripper, session SessionSource, refresher Refresher, state *RefreshState) *Coordinator {
	if state == nil {
		state = &RefreshState{}
	}

	return &Coordinator{
		Base:      base,
		Session:   session,
		Refresher: refresher,
		State:     state,
	}
}

func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if wasRetried(req) {
		return resp, nil
	}
	discard(resp)

	state := c.state()
	state.mu.Lock()
	if state.inFlight {
		w := &waiter{req: markRetried(req), done: make(chan result, 1)}
		state.waiters = append(state.waiters, w)
		state.mu.Unlock()

		select {
		case res := <-w.done:
			return res.resp, res.err
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	state.inFlight = true
	state.mu.Unlock()

	return c.refreshAndReplay(req)
}

// refreshAndReplay starts the shared refresh and waits for it unless the
// originating request gives up first. The refresh outlives its originator.
func (c *Coordinator) refreshAndReplay(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	done := make(chan error, 1)
	go func() {
		done <- c.refresh(context.WithoutCancel(ctx))
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return c.send(markRetried(req))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context) error {
	state := c.state()

	refreshCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout())
	token, err := c.Refresher.Refresh(refreshCtx)
	cancel()
	if err == nil {
		err = c.Session.Write(ctx, domain.SessionPatch{
			AccessToken:     domain.Ptr(token),
			IsAuthenticated: domain.Ptr(true),
		})
	}
	if err != nil {
		return c.failRefresh(ctx, err)
	}

	c.logger().Debug("access token refreshed")

	for {
		state.mu.Lock()
		if len(state.waiters) == 0 {
			state.inFlight = false
			state.mu.Unlock()
			return nil
		}
		w := state.waiters[0]
		state.waiters = state.waiters[1:]
		state.mu.Unlock()

		if err := w.req.Context().Err(); err != nil {
			w.done <- result{err: err}
			continue
		}
		resp, err := c.send(w.req)
		w.done <- result{resp: resp, err: err}
	}
}

func (c *Coordinator) failRefresh(ctx context.Context, cause error) error {
	state := c.state()
	refreshErr := fmt.Errorf("%w: %w", domain.ErrRefreshFailed, cause)

	state.mu.Lock()
	waiters := state.waiters
	state.waiters = nil
	state.inFlight = false
	state.mu.Unlock()

	for _, w := range waiters {
		w.done <- result{err: refreshErr}
	}

	c.logger().Warn("token refresh failed, signing out", zap.Error(cause), zap.Int("rejected", len(waiters)))

	if c.OnLogout != nil {
		if err := c.OnLogout(context.WithoutCancel(ctx)); err != nil {
			return errors.Join(refreshErr, fmt.Errorf("force logout: %w", err))
		}
	}

	return refreshErr
}

func (c *Coordinator) send(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		out.Body = body
	}

	session := c.Session.Read()
	if session.HasToken() {
		out.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}
	if session.DeviceID != "" {
		out.Header.Set(HeaderDeviceID, session.DeviceID)
	}
	out.Header.Set(HeaderDeviceType, c.deviceType())

	return c.base().RoundTrip(out)
}

// bufferBody makes the body replayable so retries resend the same payload.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("buffer request body: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

func (c *Coordinator) state() *RefreshState {
	return c.State
}

func (c *Coordinator) base() http.RoundTripper {
	if c.Base != nil {
		return c.Base
	}
	return http.DefaultTransport
}

func (c *Coordinator) refreshTimeout() time.Duration {
	if c.RefreshTimeout > 0 {
		return c.RefreshTimeout
	}
	return defaultRefreshTimeout
}

func (c *Coordinator) deviceType() string {
	if c.DeviceType != "" {
		return c.DeviceType
	}
	return DefaultDeviceType
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

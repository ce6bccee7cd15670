package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/coachsync/internal/domain"
	"github.com/bnema/coachsync/internal/ports"
	"go.uber.org/zap"
)

const (
	LoginPath         = "/auth/login"
	RefreshPath       = "/auth/refresh-token"
	ProfilePath       = "/clientUsers/"
	PushTokenPath     = "/notifications/register-token"
	defaultReqTimeout = 30 * time.Second
)

type Options struct {
	BaseURL        string
	DeviceType     string
	RequestTimeout time.Duration
	Session        SessionSource
	// Secrets persists the refresh cookie across restarts. Optional.
	Secrets   ports.SecretStore
	Transport http.RoundTripper
	State     *RefreshState
	Logger    *zap.Logger
}

// Client talks to the REST backend. Calls made through Do carry the session
// credentials and refresh the access token transparently on 401.
type Client struct {
	baseURL        *url.URL
	session        SessionSource
	jar            *sessionJar
	coordinator    *Coordinator
	authed         *http.Client
	plain          *http.Client
	deviceType     string
	requestTimeout time.Duration
	logger         *zap.Logger
}

var _ ports.AuthGateway = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	baseURL, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Session == nil {
		return nil, errors.New("session source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	deviceType := opts.DeviceType
	if deviceType == "" {
		deviceType = DefaultDeviceType
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultReqTimeout
	}

	jar := newSessionJar(baseURL, opts.Secrets)
	client := &Client{
		baseURL:        baseURL,
		session:        opts.Session,
		jar:            jar,
		plain:          &http.Client{Transport: transport, Jar: jar},
		deviceType:     deviceType,
		requestTimeout: timeout,
		logger:         logger,
	}

	client.coordinator = NewCoordinator(transport, opts.Session, client, opts.State)
	client.coordinator.DeviceType = deviceType
	client.coordinator.RefreshTimeout = timeout
	client.coordinator.Logger = logger.Named("refresh")
	client.authed = &http.Client{Transport: client.coordinator, Jar: jar}

	return client, nil
}

// OnForcedLogout registers the handler run when a refresh fails for good.
func (c *Client) OnForcedLogout(fn func(ctx context.Context) error) {
	c.coordinator.OnLogout = fn
}

func (c *Client) RefreshState() *RefreshState {
	return c.coordinator.State
}

// HTTPClient returns the authenticated client for collaborators that build
// their own requests.
func (c *Client) HTTPClient() *http.Client {
	return c.authed
}

func (c *Client) RestoreCookies(ctx context.Context) error {
	return c.jar.restore(ctx)
}

func (c *Client) ForgetCookies(ctx context.Context) error {
	return c.jar.reset(ctx)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string         `json:"accessToken"`
	DeviceID    string         `json:"deviceId"`
	User        domain.Profile `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (c *Client) Login(ctx context.Context, creds ports.Credentials) (ports.LoginResult, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return ports.LoginResult{}, errors.New("email and password are required")
	}

	var payload loginResponse
	if err := c.doJSON(ctx, c.plain, http.MethodPost, LoginPath, loginRequest(creds), &payload); err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if payload.AccessToken == "" {
		return ports.LoginResult{}, errors.New("login response missing access token")
	}

	if err := c.jar.save(ctx); err != nil {
		c.logger.Warn("persist session cookies", zap.Error(err))
	}

	return ports.LoginResult{
		AccessToken: payload.AccessToken,
		DeviceID:    payload.DeviceID,
		Profile:     payload.User,
	}, nil
}

// Refresh exchanges the session cookie for a new access token. It bypasses
// the coordinator so a 401 here never triggers another refresh.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var payload refreshResponse
	if err := c.doJSON(ctx, c.plain, http.MethodPost, RefreshPath, nil, &payload); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("refresh response missing access token")
	}

	if err := c.jar.save(ctx); err != nil {
		c.logger.Warn("persist session cookies", zap.Error(err))
	}

	return payload.AccessToken, nil
}

func (c *Client) FetchProfile(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	if id == "" {
		return domain.Profile{}, domain.ErrNotAuthenticated
	}

	var profile domain.Profile
	if err := c.Do(ctx, http.MethodGet, ProfilePath+url.PathEscape(string(id)), nil, &profile); err != nil {
		return domain.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	if profile.ID == "" {
		profile.ID = id
	}

	return profile, nil
}

func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	body := map[string]string{"token": token}
	if err := c.Do(ctx, http.MethodPost, PushTokenPath, body, nil); err != nil {
		return fmt.Errorf("register push token: %w", err)
	}

	return nil
}

// Do sends an authenticated JSON request. A nil body sends no payload and a
// nil out discards the response.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	return c.doJSON(ctx, c.authed, method, path, body, out)
}

// Raw sends an authenticated request and returns the undecoded response body.
func (c *Client) Raw(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, c.authed, method, path, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) doJSON(ctx context.Context, client *http.Client, method, path string, body any, out any) error {
	endpoint, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client == c.plain {
		c.setDeviceHeaders(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return DecodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) setDeviceHeaders(req *http.Request) {
	if deviceID := c.session.Read().DeviceID; deviceID != "" {
		req.Header.Set(HeaderDeviceID, deviceID)
	}
	req.Header.Set(HeaderDeviceType, c.deviceType)
}

func (c *Client) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("api path is required")
	}

	endpoint, err := c.baseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	return parsed, nil
}

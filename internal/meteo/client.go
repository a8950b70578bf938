// Package meteo provides the client for the destination storage API:
// session-cookie login, the most-recent-records listing used for dedupe,
// and the create endpoint. The client owns the session for exactly one
// invocation; nothing is cached across runs.
package meteo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	loginPath  = "/api/Account/login"
	listPath   = "/api/AirQuality/list"
	createPath = "/api/AirQuality"

	// sessionCookieName is the cookie the destination issues at login;
	// its absence after a 2xx login is still a failed login.
	sessionCookieName = ".AspNetCore.Cookies"

	// DefaultWindowSize is the size of the dedupe window: the number of
	// most recent records requested from the list endpoint.
	DefaultWindowSize = 24

	// maxErrorBody bounds how much of an error response ends up in an
	// error message.
	maxErrorBody = 300
)

// Credentials authenticate against the destination login endpoint. They
// are supplied explicitly via configuration and never logged.
type Credentials struct {
	Account  string
	Password string
}

// Session is the destination authentication state for one invocation.
// The cookie itself lives in the client's jar; AuthenticatedAt exists for
// diagnostics only; there is no proactive expiry.
type Session struct {
	AuthenticatedAt time.Time
}

// Record is one stored reading as returned by the list endpoint. Only
// the detection timestamp participates in dedupe.
type Record struct {
	DetectedAtUTC string `json:"detectedAtUtc"`
}

// ClientConfig holds configuration for the destination client.
type ClientConfig struct {
	// BaseURL is the destination API base URL.
	BaseURL string

	// Credentials for the login endpoint.
	Credentials Credentials

	// Timeout for individual requests (default: 20s).
	Timeout time.Duration

	// WindowSize is the dedupe window size (default: DefaultWindowSize).
	WindowSize int
}

// Client is a destination storage API client.
type Client struct {
	baseURL     string
	credentials Credentials
	windowSize  int
	httpClient  *http.Client
	session     *Session
}

// NewClient creates a destination client with a fresh, unauthenticated
// cookie jar.
func NewClient(cfg ClientConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		credentials: cfg.Credentials,
		windowSize:  windowSize,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// WindowSize returns the configured dedupe window size.
func (c *Client) WindowSize() int {
	return c.windowSize
}

// Session returns the current session state, or nil before login.
func (c *Client) Session() *Session {
	return c.session
}

// Login submits the credentials and stores the issued session cookie.
// Any previous session cookie is discarded first. A session is assumed
// valid until a request using it is rejected; re-authentication is never
// proactive.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	// Fresh jar: a stale cookie must not mask a failed re-login.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c.httpClient.Jar = jar
	c.session = nil

	body := map[string]string{
		"account":  c.credentials.Account,
		"password": c.credentials.Password,
	}
	resp, err := c.postJSON(ctx, loginPath, body)
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: snippet(resp.Body)}
	}

	if !c.hasSessionCookie() {
		return nil, &AuthError{Message: fmt.Sprintf("login succeeded but %q cookie not issued", sessionCookieName)}
	}

	c.session = &Session{AuthenticatedAt: time.Now()}
	return c.session, nil
}

// ListLatest queries the most recent records, newest first, using the
// current session. 401/403 surfaces as *AuthError so the caller can run
// its reauth path; any other failure is a *QueryError.
func (c *Client) ListLatest(ctx context.Context) ([]Record, error) {
	body := map[string]any{
		"page":     0,
		"pageSize": c.windowSize,
		"sortModel": map[string]any{
			"items": []map[string]any{
				{"field": "DetectedAtUtc", "sort": "desc"},
			},
		},
		"filterModel": map[string]any{
			"items": []map[string]any{},
		},
	}

	resp, err := c.postJSON(ctx, listPath, body)
	if err != nil {
		return nil, &QueryError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: snippet(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &QueryError{StatusCode: resp.StatusCode, Message: snippet(resp.Body)}
	}

	var result struct {
		Rows []Record `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &QueryError{StatusCode: resp.StatusCode, Message: "decode list response: " + err.Error()}
	}
	if result.Rows == nil {
		return nil, &QueryError{StatusCode: resp.StatusCode, Message: "list response missing rows"}
	}
	return result.Rows, nil
}

// Create submits one reading to the create endpoint using the current
// session. 401/403 surfaces as *AuthError; any other non-2xx is an
// *UploadError.
func (c *Client) Create(ctx context.Context, payload map[string]any) error {
	resp, err := c.postJSON(ctx, createPath, payload)
	if err != nil {
		return &UploadError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		return &AuthError{StatusCode: resp.StatusCode, Message: snippet(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UploadError{StatusCode: resp.StatusCode, Message: snippet(resp.Body)}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}

func (c *Client) hasSessionCookie() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == sessionCookieName {
			return true
		}
	}
	return false
}

// snippet reads at most maxErrorBody bytes of a response body for use in
// an error message.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}

// Package rest speaks the BI server's token-authenticated REST API. It owns
// the run's session: sign-in, transparent renewal on expiry or 401, and
// best-effort sign-out. All requests are routed through the retry executor.
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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/site-warden/pkg/services/retry"
	"github.com/rs/zerolog"
)

type ClientConfig struct {
	ServerURL   string
	TokenName   string
	TokenSecret string
	// SiteScope restricts the session to one site; empty means scan all
	// sites.
	SiteScope  string
	Timeout    time.Duration
	AuthPolicy retry.Policy
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenName   string
	tokenSecret string
	siteScope   string
	authPolicy  retry.Policy

	mu      sync.RWMutex
	renewMu sync.Mutex
	session *Session

	now func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	policy := cfg.AuthPolicy
	if policy.MaxAttempts == 0 {
		policy = retry.AuthPolicy()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.ServerURL, "/"),
		tokenName:   cfg.TokenName,
		tokenSecret: cfg.TokenSecret,
		siteScope:   cfg.SiteScope,
		authPolicy:  policy,
		now:         time.Now,
	}
}

type signInRequest struct {
	TokenName   string `json:"token_name"`
	TokenSecret string `json:"token_secret"`
	Site        string `json:"site,omitempty"`
}

type signInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignIn authenticates and installs the run's session. Failures are fatal
// to the run and reported as *AuthError.
func (c *Client) SignIn(ctx context.Context) (*Session, error) {
	resp, err := retry.DoValue(ctx, c.authPolicy, "sign_in", func(ctx context.Context) (*signInResponse, error) {
		return c.requestSignIn(ctx)
	})
	if err != nil {
		return nil, &AuthError{ServerURL: c.baseURL, Site: c.siteScope, Err: err}
	}

	session := &Session{
		Token:     resp.Token,
		SiteScope: c.siteScope,
		IssuedAt:  c.now(),
		ExpiresAt: resp.ExpiresAt,
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("server", c.baseURL).
		Time("expires_at", session.ExpiresAt).
		Msg("signed in")
	return session, nil
}

func (c *Client) requestSignIn(ctx context.Context) (*signInResponse, error) {
	body, err := json.Marshal(signInRequest{
		TokenName:   c.tokenName,
		TokenSecret: c.tokenSecret,
		Site:        c.siteScope,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/signin", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding sign-in response: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("sign-in response carried no token")
	}
	return &out, nil
}

// EnsureValid returns the current session, re-authenticating when it is
// absent, expired, or was invalidated by a 401. Only one renewal is in
// flight at a time; concurrent callers block on the lock and pick up the
// renewed session instead of each triggering a sign-in.
func (c *Client) EnsureValid(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	if c.session.ValidAt(c.now()) {
		s := c.session
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	c.renewMu.Lock()
	defer c.renewMu.Unlock()

	// Re-check under the renewal lock: another caller may have renewed
	// while we waited.
	c.mu.RLock()
	if c.session.ValidAt(c.now()) {
		s := c.session
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	return c.SignIn(ctx)
}

// invalidate drops the session if it still holds the given token, so a 401
// on a stale token forces exactly one renewal.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	if c.session != nil && c.session.Token == token {
		c.session = nil
	}
	c.mu.Unlock()
}

// SignOut is idempotent and best-effort: a failed sign-out is logged by the
// caller, never fatal.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/signout", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign-out request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent,
		http.StatusUnauthorized, http.StatusNotFound:
		// Already signed out counts as signed out.
		return nil
	default:
		return serverError(resp)
	}
}

// get issues one authenticated GET and decodes the JSON body into out. A
// 401 invalidates the token and retries once against a renewed session.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	session, err := c.EnsureValid(ctx)
	if err != nil {
		return err
	}

	err = c.getWithToken(ctx, session.Token, path, query, out)

	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Unauthorized() {
		c.invalidate(session.Token)
		session, err = c.EnsureValid(ctx)
		if err != nil {
			return err
		}
		err = c.getWithToken(ctx, session.Token, path, query, out)
	}
	return err
}

func (c *Client) getWithToken(ctx context.Context, token, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func serverError(resp *http.Response) *ServerError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &ServerError{
		StatusCode: resp.StatusCode,
		Summary:    strings.TrimSpace(string(body)),
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

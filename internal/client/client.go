// Package client is a typed client for the MeniuMate REST API.
//
// All authenticated calls go through a RefreshTransport, so an expired
// access token is refreshed once and the call retried without the caller
// noticing. Mutations validate their input before anything is sent and
// return *models.ValidationError on bad input.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/session"
)

// Options configures a Client. The zero value is usable.
type Options struct {
	// Base performs the actual HTTP exchanges (default http.DefaultTransport).
	Base           http.RoundTripper
	RefreshTimeout time.Duration
	Metrics        metrics.Recorder
	Logger         *slog.Logger
}

// Client talks to one API server on behalf of one session.
type Client struct {
	baseURL   string
	session   *session.Session
	transport *RefreshTransport
	authed    *http.Client
	plain     *http.Client
	logger    *slog.Logger
}

// New creates a Client for the API at baseURL.
func New(baseURL string, sess *session.Session, opts Options) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	transport := &RefreshTransport{
		Base:       base,
		Session:    sess,
		RefreshURL: baseURL + "/api/accessToken",
		Timeout:    opts.RefreshTimeout,
		Metrics:    opts.Metrics,
		Logger:     logger,
	}
	return &Client{
		baseURL:   baseURL,
		session:   sess,
		transport: transport,
		authed:    &http.Client{Transport: transport},
		plain:     &http.Client{Transport: base},
		logger:    logger,
	}
}

// Session returns the client's session.
func (c *Client) Session() *session.Session {
	return c.session
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if len(strings.TrimSpace(username)) < 3 {
		return nil, &models.ValidationError{Field: "userName", Message: "must be at least 3 characters"}
	}
	if len(password) < 8 {
		return nil, &models.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	var user models.User
	body := map[string]string{"userName": username, "email": email, "password": password}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the issued tokens in the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &models.ValidationError{Field: "credentials", Message: "username and password are required"}
	}

	var pair tokenPair
	body := map[string]string{"userName": username, "password": password}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api/login", body, &pair); err != nil {
		return err
	}
	if err := c.session.Login(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}
	c.logger.Info("Logged in", "user_id", c.session.UserID())
	return nil
}

// Logout revokes the refresh token on the server, best effort, and clears
// the session.
func (c *Client) Logout(ctx context.Context) error {
	if refresh := c.session.RefreshToken(); refresh != "" {
		body := map[string]string{"refreshToken": refresh}
		if err := c.do(ctx, c.plain, http.MethodPost, "/api/logout", body, nil); err != nil {
			c.logger.Warn("Server logout failed", "error", err)
		}
	}
	return c.session.Logout(ctx)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.get(ctx, "/api/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// KeepAlive refreshes the token pair every interval until ctx is done or
// the session is invalidated. A failed refresh ends the session and is
// returned.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.session.Done():
			return c.session.Err()
		case <-ticker.C:
			if err := c.transport.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.authed, http.MethodGet, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, c.authed, method, path, in, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newRequestError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/session"
)

// DefaultRefreshTimeout bounds the token refresh call.
const DefaultRefreshTimeout = 10 * time.Second

// RefreshTransport authenticates requests with the session's access token
// and transparently refreshes it once on 401.
//
// Concurrent 401s share one refresh call: the first caller performs it and
// the others park until it resolves. A failed refresh invalidates the
// session and fails every parked request with an error wrapping
// ErrSessionExpired.
type RefreshTransport struct {
	Base       http.RoundTripper
	Session    *session.Session
	RefreshURL string
	Timeout    time.Duration
	Metrics    metrics.Recorder
	Logger     *slog.Logger

	group singleflight.Group
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RoundTrip implements http.RoundTripper.
func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if err := makeReplayable(req); err != nil {
		return nil, err
	}

	sentWith := t.Session.AccessToken()
	first, err := withToken(req, sentWith)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if t.Session.RefreshToken() == "" {
		// Invalidated while this request was in flight.
		if cause := t.Session.Err(); cause != nil && sentWith != "" {
			drain(resp)
			return nil, expired(cause)
		}
		return resp, nil
	}
	drain(resp)

	token := t.Session.AccessToken()
	if token == sentWith || token == "" {
		token, err = t.awaitRefresh(req.Context(), sentWith)
		if err != nil {
			return nil, err
		}
	}

	retry, err := withToken(req, token)
	if err != nil {
		return nil, err
	}
	t.recorder().RecordRetry()
	return t.base().RoundTrip(retry)
}

// awaitRefresh joins or starts the shared refresh and waits for it, giving
// up early only when ctx is done. The refresh itself keeps running.
func (t *RefreshTransport) awaitRefresh(ctx context.Context, stale string) (string, error) {
	ch := t.group.DoChan("refresh", func() (any, error) {
		return t.refresh(ctx, stale)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Refresh exchanges the stored refresh token for a new pair. It joins a
// refresh already in flight.
func (t *RefreshTransport) Refresh(ctx context.Context) error {
	_, err := t.awaitRefresh(ctx, t.Session.AccessToken())
	return err
}

func (t *RefreshTransport) refresh(ctx context.Context, stale string) (string, error) {
	// Another refresh may have finished between our 401 and joining.
	if current := t.Session.AccessToken(); current != "" && current != stale {
		return current, nil
	}

	refreshToken := t.Session.RefreshToken()
	if refreshToken == "" {
		return "", expired(t.Session.Err())
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout())
	defer cancel()

	t.recorder().RecordRefresh()
	pair, err := t.exchange(ctx, refreshToken)
	if err == nil {
		err = t.Session.SetTokens(ctx, pair.AccessToken, pair.RefreshToken)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		t.recorder().RecordRefreshFailure()
		t.logger().Warn("Token refresh failed", "error", err)
		if clearErr := t.Session.Expire(context.WithoutCancel(ctx), err); clearErr != nil {
			t.logger().Error("Failed to clear expired session", "error", clearErr)
		}
		return "", err
	}

	t.logger().Debug("Access token refreshed", "user_id", t.Session.UserID())
	return pair.AccessToken, nil
}

func (t *RefreshTransport) exchange(ctx context.Context, refreshToken string) (*tokenPair, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.RefreshURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newRequestError(resp)
	}

	var pair tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("refresh response carried no access token")
	}
	return &pair, nil
}

// expired wraps cause in ErrSessionExpired unless it already is one.
func expired(cause error) error {
	switch {
	case cause == nil:
		return fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	case errors.Is(cause, ErrSessionExpired):
		return cause
	default:
		return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	}
}

func (t *RefreshTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RefreshTransport) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultRefreshTimeout
}

func (t *RefreshTransport) recorder() metrics.Recorder {
	if t.Metrics != nil {
		return t.Metrics
	}
	return (*metrics.Collector)(nil)
}

func (t *RefreshTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// withToken returns a clone of req carrying token, with its own body
// reader when the request has a body.
func withToken(req *http.Request, token string) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out, nil
}

// makeReplayable ensures req.GetBody is set, buffering a body that cannot
// be re-read. The original body is always closed; attempts read from
// GetBody.
func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to buffer request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

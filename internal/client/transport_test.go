package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/session"
)

// fakeAPI accepts only its current access token on /data and rotates it on
// /api/accessToken.
type fakeAPI struct {
	t      *testing.T
	tokens *auth.JWTManager

	mu      sync.Mutex
	current string
	refresh string

	refreshCalls  atomic.Int32
	failRefresh   bool
	alwaysRejects bool
	unauthorized  chan struct{}
	holdRefresh   int // wait for this many 401s before answering a refresh
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:            t,
		tokens:       auth.NewJWTManager("test-secret", time.Hour),
		unauthorized: make(chan struct{}, 16),
	}
}

func (f *fakeAPI) mint() string {
	tok, err := f.tokens.Generate(&models.User{ID: "user-1", Username: "alice", Roles: []string{models.RoleUser}})
	if err != nil {
		f.t.Fatalf("Generate failed: %v", err)
	}
	return tok
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/accessToken":
		f.refreshCalls.Add(1)
		for i := 0; i < f.holdRefresh; i++ {
			select {
			case <-f.unauthorized:
			case <-time.After(2 * time.Second):
			}
		}

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failRefresh || body.RefreshToken != f.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": "refresh token expired"})
			return
		}
		f.current = f.mint()
		f.refresh = "refresh-" + f.current[len(f.current)-8:]
		json.NewEncoder(w).Encode(tokenPair{AccessToken: f.current, RefreshToken: f.refresh})

	default:
		f.mu.Lock()
		ok := !f.alwaysRejects && r.Header.Get("Authorization") == "Bearer "+f.current
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			select {
			case f.unauthorized <- struct{}{}:
			default:
			}
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}
}

// expire makes the server reject the session's access token while still
// honoring its refresh token.
func (f *fakeAPI) expire(t *testing.T, sess *session.Session) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.mint()
	f.refresh = sess.RefreshToken()
}

func newTransport(t *testing.T, f *fakeAPI) (*httptest.Server, *RefreshTransport, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	sess, _ := session.Open(ctx, session.NewMemoryStore())
	if err := sess.Login(ctx, f.mint(), "refresh-0"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	f.expire(t, sess)

	return srv, &RefreshTransport{
		Session:    sess,
		RefreshURL: srv.URL + "/api/accessToken",
		Timeout:    time.Second,
	}, sess
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := newFakeAPI(t)
	f.holdRefresh = 2
	srv, rt, _ := newTransport(t, f)

	reg := prometheus.NewRegistry()
	rt.Metrics = metrics.NewCollector(reg)
	hc := &http.Client{Transport: rt}

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := hc.Get(srv.URL + "/data")
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	for i := range 2 {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		if statuses[i] != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, statuses[i])
		}
	}
	if got := f.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
}

func TestFailedRefreshRejectsAllWaiters(t *testing.T) {
	f := newFakeAPI(t)
	f.holdRefresh = 3
	f.failRefresh = true
	srv, rt, sess := newTransport(t, f)
	hc := &http.Client{Transport: rt}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := hc.Get(srv.URL + "/data")
			if err == nil {
				resp.Body.Close()
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Errorf("request %d error = %v, want ErrSessionExpired", i, err)
		}
		if !IsStatus(err, http.StatusUnauthorized) {
			t.Errorf("request %d should carry the refresh failure, got %v", i, err)
		}
	}
	if got := f.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if sess.LoggedIn() {
		t.Error("session should be cleared after a failed refresh")
	}
	select {
	case <-sess.Done():
	default:
		t.Error("session should be invalidated")
	}
}

func TestRetryReplaysBody(t *testing.T) {
	f := newFakeAPI(t)
	srv, rt, _ := newTransport(t, f)
	hc := &http.Client{Transport: rt}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/data", io.NopCloser(strings.NewReader(`{"total":42}`)))
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(body) != `{"total":42}` {
		t.Errorf("response = %d %q, want the replayed body", resp.StatusCode, body)
	}
}

func TestNoRefreshTokenReturnsUnauthorized(t *testing.T) {
	f := newFakeAPI(t)
	srv := httptest.NewServer(f)
	defer srv.Close()

	ctx := context.Background()
	sess, _ := session.Open(ctx, session.NewMemoryStore())
	sess.Login(ctx, f.mint(), "")
	rt := &RefreshTransport{Session: sess, RefreshURL: srv.URL + "/api/accessToken"}

	resp, err := (&http.Client{Transport: rt}).Get(srv.URL + "/data")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if f.refreshCalls.Load() != 0 {
		t.Error("no refresh should be attempted without a refresh token")
	}
}

func TestSecondUnauthorizedIsReturned(t *testing.T) {
	f := newFakeAPI(t)
	f.alwaysRejects = true
	srv, rt, _ := newTransport(t, f)

	resp, err := (&http.Client{Transport: rt}).Get(srv.URL + "/data")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := f.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestStaleTokenRetriesWithoutRefresh(t *testing.T) {
	f := newFakeAPI(t)
	srv, rt, sess := newTransport(t, f)
	stale := sess.AccessToken()

	// The server already rotated to a token the session holds.
	fresh := f.mint()
	f.mu.Lock()
	f.current = fresh
	f.mu.Unlock()

	// Simulate a request that left with the stale token and whose 401
	// arrives after the session was updated.
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") == "Bearer "+stale {
			sess.SetTokens(context.Background(), fresh, "refresh-new")
		}
		return http.DefaultTransport.RoundTrip(r)
	})
	rt.Base = base

	resp, err := (&http.Client{Transport: rt}).Get(srv.URL + "/data")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := f.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestWaiterCancellationLeavesRefreshRunning(t *testing.T) {
	f := newFakeAPI(t)
	f.holdRefresh = 2
	srv, rt, sess := newTransport(t, f)
	hc := &http.Client{Transport: rt}

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/data", nil)
	go func() {
		// Cancel once the first 401 has been observed by the refresh.
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if _, err := hc.Do(req); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled waiter error = %v, want context.Canceled", err)
	}

	// A second request releases the held refresh and gets the new token.
	resp, err := hc.Get(srv.URL + "/data")
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if sess.Err() != nil {
		t.Errorf("session invalidated: %v", sess.Err())
	}
	if got := f.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestFailedRefreshClearsPersistedSession(t *testing.T) {
	f := newFakeAPI(t)
	f.failRefresh = true
	srv := httptest.NewServer(f)
	defer srv.Close()

	dir := t.TempDir()
	store, err := session.NewSQLiteStore(dir + "/session.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	sess, _ := session.Open(ctx, store)
	if err := sess.Login(ctx, f.mint(), "refresh-0"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	f.expire(t, sess)
	rt := &RefreshTransport{Session: sess, RefreshURL: srv.URL + "/api/accessToken", Timeout: time.Second}

	if _, err := (&http.Client{Transport: rt}).Get(srv.URL + "/data"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}

	if saved, err := store.Load(ctx); err != nil || saved != nil {
		t.Errorf("store after failed refresh = %+v, %v; want empty", saved, err)
	}
	reopened, err := session.Open(ctx, store)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.LoggedIn() {
		t.Error("a restarted client must not resume an expired session")
	}
}

func TestLogoutDuringRefreshWins(t *testing.T) {
	f := newFakeAPI(t)
	srv := httptest.NewServer(f)
	defer srv.Close()

	ctx := context.Background()
	store := session.NewMemoryStore()
	sess, _ := session.Open(ctx, store)
	if err := sess.Login(ctx, f.mint(), "refresh-0"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	f.expire(t, sess)

	entered := make(chan struct{})
	release := make(chan struct{})
	rt := &RefreshTransport{
		Session:    sess,
		RefreshURL: srv.URL + "/api/accessToken",
		Timeout:    5 * time.Second,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path == "/api/accessToken" {
				close(entered)
				<-release
			}
			return http.DefaultTransport.RoundTrip(r)
		}),
	}

	done := make(chan error, 1)
	go func() {
		resp, err := (&http.Client{Transport: rt}).Get(srv.URL + "/data")
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}
	if err := sess.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	close(release)

	err := <-done
	if !errors.Is(err, ErrSessionExpired) || !errors.Is(err, session.ErrLoggedOut) {
		t.Errorf("request error = %v, want session expired by logout", err)
	}
	if sess.LoggedIn() {
		t.Error("late refresh must not restore credentials after logout")
	}
	if !errors.Is(sess.Err(), session.ErrLoggedOut) {
		t.Errorf("Err = %v, want ErrLoggedOut", sess.Err())
	}
	if saved, _ := store.Load(ctx); saved != nil {
		t.Errorf("store after logout = %+v, want empty", saved)
	}
}

type closeTrackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *closeTrackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

func TestCallerBodyIsClosed(t *testing.T) {
	f := newFakeAPI(t)
	srv, rt, _ := newTransport(t, f)

	const payload = `{"name":"Ann"}`
	body := &closeTrackingBody{Reader: strings.NewReader(payload)}
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/data", body)
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(payload)), nil
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(got) != payload {
		t.Errorf("response = %d %q", resp.StatusCode, got)
	}
	if !body.closed.Load() {
		t.Error("RoundTrip must close the caller's request body")
	}
}

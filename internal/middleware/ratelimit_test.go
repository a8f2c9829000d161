package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:  rate.Limit(1.0 / 60.0),
		GeneralBurst: 2,
		AuthRate:     rate.Limit(1.0 / 60.0),
		AuthBurst:    1,
	})
	defer rl.Stop()

	handler := rl.General()(okHandler())
	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := send("10.0.0.1:9999")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive seconds", rec.Header().Get("Retry-After"))
	}

	if rec := send("10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
	if n := rl.general.len(); n != 2 {
		t.Errorf("tracked clients = %d, want 2", n)
	}
}

func TestRateLimiterKeysByUser(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{AuthRate: rate.Limit(1.0 / 60.0), AuthBurst: 1})
	defer rl.Stop()

	handler := rl.Auth()(okHandler())
	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		req = req.WithContext(WithIdentity(req.Context(), userID, nil))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("u1"); got != http.StatusOK {
		t.Fatalf("u1 first = %d", got)
	}
	if got := send("u1"); got != http.StatusTooManyRequests {
		t.Errorf("u1 second = %d, want 429", got)
	}
	if got := send("u2"); got != http.StatusOK {
		t.Errorf("u2 first = %d, want 200 (same IP, different user)", got)
	}
}

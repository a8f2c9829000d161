package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/handler"
	"github.com/mmynk/meniumate/internal/ledger"
	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/service"
	"github.com/mmynk/meniumate/internal/session"
	"github.com/mmynk/meniumate/internal/storage/sqlite"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// setupAPI starts the real API over a temporary database. "chef" registers
// as Admin.
func setupAPI(t *testing.T) *httptest.Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "client-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	srv := httptest.NewServer(handler.NewRouter(&handler.RouterDeps{
		AuthService: service.NewAuthService(
			auth.NewPasswordAuthenticator(store, "chef"), jwtManager, store, store, time.Hour, discard),
		GroupService:   service.NewGroupService(store, discard),
		CatalogService: service.NewCatalogService(store, discard),
		JWTManager:     jwtManager,
		Logger:         discard,
	}))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, rec metrics.Recorder) *Client {
	t.Helper()
	sess, err := session.Open(context.Background(), session.NewMemoryStore())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return New(srv.URL, sess, Options{Metrics: rec, Logger: discard})
}

func signIn(t *testing.T, c *Client, username string) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.Register(ctx, username, username+"@example.com", "password123"); err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	if err := c.Login(ctx, username, "password123"); err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
}

func TestValidationHappensBeforeRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"short menu name", func() error {
			_, err := c.CreateMenu(ctx, &models.Menu{Name: "B", Description: "A long description"})
			return err
		}},
		{"dish price", func() error {
			_, err := c.CreateDish(ctx, "m", &models.Dish{Name: "Soup", Description: "Warm soup", Ingredients: "water, salt"})
			return err
		}},
		{"comment rating", func() error {
			_, err := c.CreateComment(ctx, "m", "d", &models.Comment{Content: "Nice", Rating: 6})
			return err
		}},
		{"blank group title", func() error {
			_, err := c.CreateGroup(ctx, "  ", []string{"Ann"})
			return err
		}},
		{"blank member", func() error {
			_, err := c.AddMember(ctx, "g", " ")
			return err
		}},
		{"percentages off", func() error {
			_, err := c.CreateTransaction(ctx, "g", []models.Member{{ID: "a"}, {ID: "b"}}, ledger.SplitRequest{
				PayerID: "a", Total: 10, Type: models.SplitPercentage,
				Percentages: map[string]float64{"a": 50, "b": 40},
			})
			return err
		}},
		{"settle self", func() error {
			_, err := c.Settle(ctx, "g", "a", "a")
			return err
		}},
		{"short password", func() error {
			_, err := c.Register(ctx, "alice", "a@example.com", "short")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *models.ValidationError
			if err := tt.call(); !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
	if calls != 0 {
		t.Errorf("server received %d requests, want 0", calls)
	}
}

func TestRequestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusConflict, `{"code":"conflict","message":"member has debts"}`, "member has debts"},
		{"error field", http.StatusBadRequest, `{"error":"bad input"}`, "bad input"},
		{"raw text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusNotFound, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv, nil).ListMenus(context.Background())
			var rerr *RequestError
			if !errors.As(err, &rerr) {
				t.Fatalf("error = %v, want RequestError", err)
			}
			if rerr.StatusCode != tt.status || rerr.Message != tt.want {
				t.Errorf("RequestError = %d %q, want %d %q", rerr.StatusCode, rerr.Message, tt.status, tt.want)
			}
		})
	}
}

func TestCatalogEndToEnd(t *testing.T) {
	srv := setupAPI(t)
	ctx := context.Background()

	chef := newClient(t, srv, nil)
	signIn(t, chef, "chef")
	if !chef.Session().IsAdmin() {
		t.Fatal("chef should be admin")
	}
	diner := newClient(t, srv, nil)
	signIn(t, diner, "diner")

	menu, err := chef.CreateMenu(ctx, &models.Menu{Name: "Dinner", Description: "Evening dishes and drinks"})
	if err != nil {
		t.Fatalf("CreateMenu failed: %v", err)
	}
	if _, err := diner.CreateMenu(ctx, &models.Menu{Name: "Mine", Description: "Not allowed to exist"}); !IsStatus(err, http.StatusForbidden) {
		t.Errorf("diner CreateMenu error = %v, want 403", err)
	}

	dish, err := chef.CreateDish(ctx, menu.ID, &models.Dish{
		Name: "Risotto", Description: "Creamy rice", Ingredients: "rice, stock, parmesan", Price: 14.5, IsAvailable: true,
	})
	if err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}

	comment, err := diner.CreateComment(ctx, menu.ID, dish.ID, &models.Comment{Content: "Great", Rating: 5})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if !diner.Session().CanModify(comment.UserID) || chef.Session().UserID() == comment.UserID {
		t.Errorf("comment owner = %q", comment.UserID)
	}
	if !chef.Session().CanModify(comment.UserID) {
		t.Error("admin should be able to modify any comment")
	}

	comment.Rating = 4
	if _, err := chef.UpdateComment(ctx, menu.ID, dish.ID, comment); err != nil {
		t.Errorf("admin UpdateComment failed: %v", err)
	}

	comments, err := diner.ListComments(ctx, menu.ID, dish.ID)
	if err != nil || len(comments) != 1 || comments[0].Rating != 4 {
		t.Errorf("ListComments = %v, %v", comments, err)
	}

	if err := chef.DeleteDish(ctx, menu.ID, dish.ID); err != nil {
		t.Fatalf("DeleteDish failed: %v", err)
	}
	if _, err := diner.GetDish(ctx, menu.ID, dish.ID); !IsStatus(err, http.StatusNotFound) {
		t.Errorf("GetDish after delete error = %v, want 404", err)
	}
}

func TestGroupViewEndToEnd(t *testing.T) {
	srv := setupAPI(t)
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := newClient(t, srv, metrics.NewCollector(reg))
	signIn(t, c, "alice")

	group, err := c.CreateGroup(ctx, "Trip", []string{"Ann", "Ben", "Cat"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	ann, ben, cat := group.Members[0].ID, group.Members[1].ID, group.Members[2].ID

	if _, err := c.CreateTransaction(ctx, group.ID, group.Members, ledger.SplitRequest{
		PayerID: ann, Total: 30, Type: models.SplitEqual,
	}); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	view, err := c.GroupView(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupView failed: %v", err)
	}
	if view.Matrix.At(1, 0) != 10 || view.Matrix.At(2, 0) != 10 {
		t.Errorf("matrix = %v", view.Matrix.Rows())
	}
	for _, id := range []string{ann, ben, cat} {
		if view.Removable[id] {
			t.Errorf("member %s should not be removable", id)
		}
	}
	if got := view.SettleCandidates(ben); len(got) != 1 || got[0].ToMemberID != ann {
		t.Errorf("SettleCandidates(ben) = %v", got)
	}
	if got := view.SettleCandidates(ann); len(got) != 0 {
		t.Errorf("SettleCandidates(ann) = %v, want none", got)
	}

	if err := c.RemoveMember(ctx, group.ID, cat); !IsStatus(err, http.StatusConflict) {
		t.Errorf("RemoveMember with debt error = %v, want 409", err)
	}
	if _, err := c.Settle(ctx, group.ID, cat, ann); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if err := c.RemoveMember(ctx, group.ID, cat); err != nil {
		t.Errorf("RemoveMember after settle failed: %v", err)
	}

	groups, err := c.ListGroups(ctx, ann)
	if err != nil || len(groups) != 1 {
		t.Fatalf("ListGroups = %v, %v", groups, err)
	}
	if got := ledger.BalanceLabel(groups[0].Balance); got != "They owe you: 10.00" {
		t.Errorf("balance label = %q", got)
	}
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	srv := setupAPI(t)
	ctx := context.Background()
	c := newClient(t, srv, nil)
	signIn(t, c, "alice")

	// A token signed with another key is rejected by the server.
	forged, err := auth.NewJWTManager("other-secret", time.Hour).Generate(&models.User{ID: c.Session().UserID(), Username: "alice"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	refresh := c.Session().RefreshToken()
	if err := c.Session().SetTokens(ctx, forged, refresh); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	if _, err := c.ListGroups(ctx, ""); err != nil {
		t.Fatalf("ListGroups after refresh failed: %v", err)
	}
	if c.Session().AccessToken() == forged || c.Session().RefreshToken() == refresh {
		t.Error("tokens should be rotated")
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := c.ListGroups(ctx, ""); !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("ListGroups after logout error = %v, want 401", err)
	}
}

func TestRevokedRefreshTokenExpiresSession(t *testing.T) {
	srv := setupAPI(t)
	ctx := context.Background()
	c := newClient(t, srv, nil)
	signIn(t, c, "alice")

	other := newClient(t, srv, nil)
	if err := other.Session().SetTokens(ctx, c.Session().AccessToken(), c.Session().RefreshToken()); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	// Rotating through the second client revokes the first client's token.
	if err := other.transport.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	forged, _ := auth.NewJWTManager("other-secret", time.Hour).Generate(&models.User{ID: "x"})
	c.Session().SetTokens(ctx, forged, c.Session().RefreshToken())

	_, err := c.ListGroups(ctx, "")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if !errors.Is(c.Session().Err(), ErrSessionExpired) {
		t.Errorf("session Err = %v", c.Session().Err())
	}
}

func TestKeepAliveStopsOnInvalidation(t *testing.T) {
	srv := setupAPI(t)
	c := newClient(t, srv, nil)
	signIn(t, c, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	before := c.Session().RefreshToken()
	done := make(chan error, 1)
	go func() { done <- c.KeepAlive(ctx, 20*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for c.Session().RefreshToken() == before {
		select {
		case <-deadline:
			t.Fatal("KeepAlive did not refresh")
		case <-time.After(10 * time.Millisecond):
		}
	}

	signedOut := errors.New("signed out elsewhere")
	c.Session().Invalidate(signedOut)
	select {
	case err := <-done:
		if !errors.Is(err, signedOut) {
			t.Errorf("KeepAlive returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("KeepAlive did not stop")
	}
}

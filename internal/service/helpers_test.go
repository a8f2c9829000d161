package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage/sqlite"
)

func setupStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asUser(userID string) context.Context {
	return middleware.WithIdentity(context.Background(), userID, []string{models.RoleUser})
}

func asAdmin(userID string) context.Context {
	return middleware.WithIdentity(context.Background(), userID, []string{models.RoleUser, models.RoleAdmin})
}

// Package config loads server and client settings from the environment.
//
// A .env file in the working directory is read first when present; values
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// Server holds the API server settings.
type Server struct {
	Addr              string
	DBPath            string
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	AdminUsernames    []string
	CORSAllowedOrigin string
	ShutdownTimeout   time.Duration

	GeneralRate  rate.Limit
	GeneralBurst int
	AuthRate     rate.Limit
	AuthBurst    int
}

// Client holds the CLI client settings.
type Client struct {
	BaseURL           string
	SessionDBPath     string
	RefreshTimeout    time.Duration
	KeepAliveInterval time.Duration
}

const devSecret = "dev-secret-change-me"

// LoadServer reads server settings.
//
//	ADDR                 listen address (default :8080)
//	DB_PATH              SQLite database (default ./data/meniumate.db)
//	JWT_SECRET           HMAC key for access tokens
//	ACCESS_TOKEN_TTL     default 15m
//	REFRESH_TOKEN_TTL    default 720h
//	ADMIN_USERNAMES      comma-separated, granted Admin at registration
//	CORS_ALLOWED_ORIGIN  default *
//	RATE_LIMIT_PER_MINUTE, RATE_LIMIT_BURST      per client, default 120/120
//	AUTH_RATE_LIMIT_PER_MINUTE, AUTH_RATE_LIMIT_BURST  default 10/10
//	SHUTDOWN_TIMEOUT     default 10s
func LoadServer() (*Server, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Server{
		Addr:              getEnv("ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "./data/meniumate.db"),
		JWTSecret:         getEnv("JWT_SECRET", devSecret),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		AdminUsernames:    getList("ADMIN_USERNAMES"),
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	generalPerMin, err := getFloat("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	authPerMin, err := getFloat("AUTH_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	cfg.GeneralRate, cfg.AuthRate = rate.Limit(generalPerMin/60), rate.Limit(authPerMin/60)
	if cfg.GeneralBurst, err = getInt("RATE_LIMIT_BURST", 120); err != nil {
		return nil, err
	}
	if cfg.AuthBurst, err = getInt("AUTH_RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return cfg, nil
}

// UsesDevSecret reports whether JWT_SECRET was left at its default.
func (c *Server) UsesDevSecret() bool {
	return c.JWTSecret == devSecret
}

// LoadClient reads client settings.
//
//	MENIUMATE_URL          API base URL (default http://localhost:8080)
//	MENIUMATE_SESSION_DB   session file (default $HOME/.meniumate/session.db)
//	REFRESH_TIMEOUT        bound on the token refresh call (default 10s)
//	KEEPALIVE_INTERVAL     proactive refresh period (default 5m)
func LoadClient() (*Client, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	sessionDefault := ".meniumate-session.db"
	if home, err := os.UserHomeDir(); err == nil {
		sessionDefault = home + "/.meniumate/session.db"
	}

	cfg := &Client{
		BaseURL:       strings.TrimRight(getEnv("MENIUMATE_URL", "http://localhost:8080"), "/"),
		SessionDBPath: getEnv("MENIUMATE_SESSION_DB", sessionDefault),
	}
	var err error
	if cfg.RefreshTimeout, err = getDuration("REFRESH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.KeepAliveInterval, err = getDuration("KEEPALIVE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

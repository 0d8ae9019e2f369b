// Package config reads process configuration from the environment once at
// startup. Components receive explicit values instead of reading globals, so
// they stay independently testable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"herodex.org/internal/auth"
	"herodex.org/internal/images"
)

// Config holds every runtime setting the service needs.
type Config struct {
	// Addr is the HTTP bind address, e.g. ":8080".
	Addr string

	// DatabaseDSN is the PostgreSQL DSN. Empty means in-memory stores
	// (development only).
	DatabaseDSN string

	// AuthSecret signs session tokens. Mandatory: without it the process
	// refuses to start instead of running unsigned.
	AuthSecret string

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration

	// BcryptCost tunes password hashing work. Zero falls back to the
	// library default.
	BcryptCost int

	// S3 configures image storage. An empty bucket disables the S3 backend.
	S3 images.S3Config

	// AdminEmail/AdminPassword, when both set, bootstrap an initial admin
	// user at startup if no user with that email exists yet.
	AdminEmail    string
	AdminPassword string
}

// FromEnv builds a Config from HERODEX_* environment variables. It fails fast
// on a missing signing secret or an unparseable TTL.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:        ":8080",
		DatabaseDSN: os.Getenv("HERODEX_PG_DSN"),
		AuthSecret:  os.Getenv("HERODEX_AUTH_SECRET"),
		S3: images.S3Config{
			Bucket:       os.Getenv("HERODEX_S3_BUCKET"),
			Region:       envOr("HERODEX_S3_REGION", "us-east-1"),
			BaseEndpoint: os.Getenv("HERODEX_S3_ENDPOINT"),
			AccessKey:    os.Getenv("HERODEX_S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("HERODEX_S3_SECRET_KEY"),
		},
		AdminEmail:    os.Getenv("HERODEX_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("HERODEX_ADMIN_PASSWORD"),
	}

	if addr := os.Getenv("HERODEX_ADDR"); addr != "" {
		cfg.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("HERODEX_AUTH_SECRET is required")
	}

	ttl, err := auth.ParseTTL(os.Getenv("HERODEX_TOKEN_TTL"))
	if err != nil {
		return nil, fmt.Errorf("HERODEX_TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if raw := os.Getenv("HERODEX_BCRYPT_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("HERODEX_BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = cost
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"herodex.org/internal/auth"
	"herodex.org/internal/config"
	"herodex.org/internal/hero"
	"herodex.org/internal/httpapi"
	"herodex.org/internal/images"
	"herodex.org/internal/obs"
	"herodex.org/internal/user"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	ctx := context.Background()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db *sql.DB
	var heroes hero.Store
	var users user.Store
	if cfg.DatabaseDSN != "" {
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		heroes = hero.NewPGStore(db)
		users = user.NewPGStore(db)
	} else {
		log.Println("no HERODEX_PG_DSN set, using in-memory stores")
		heroes = hero.NewMemoryStore()
		users = user.NewMemoryStore()
	}

	var imgStore images.Storage
	if cfg.S3.Bucket != "" {
		imgStore, err = images.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("s3 storage: %v", err)
		}
	} else {
		log.Println("no HERODEX_S3_BUCKET set, using in-memory image storage")
		imgStore = images.NewMemoryStorage()
	}

	codec, err := auth.NewCodec(cfg.AuthSecret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth codec: %v", err)
	}

	if err := bootstrapAdmin(ctx, users, cfg); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	api := httpapi.New(codec, heroes, users, imgStore, httpapi.ReadyProbe{DB: db}, version)
	api.SetBcryptCost(cfg.BcryptCost)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting herodex-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// bootstrapAdmin creates the initial admin account when both credentials are
// configured and no user owns the email yet. Restarts are no-ops.
func bootstrapAdmin(ctx context.Context, users user.Store, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	admin := &user.User{
		FirstName:    "Herodex",
		LastName:     "Admin",
		Email:        cfg.AdminEmail,
		Role:         user.RoleAdmin,
		PasswordHash: hash,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("bootstrapped admin user %s", cfg.AdminEmail)
	return nil
}

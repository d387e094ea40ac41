package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"myapi/internal/api"
	"myapi/internal/auth"
	"myapi/internal/config"
	"myapi/internal/db"
	"myapi/internal/images"
	"myapi/internal/models"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("database opened", "driver", database.Driver())

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	seeded, err := db.NewRoleRepository(database).EnsureRoles(startupCtx, models.AllRoles...)
	if err != nil {
		slog.Error("failed to seed roles", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		slog.Info("roles seeded", "count", seeded)
	}

	users := db.NewUserRepository(database)

	if _, err := auth.GrantAdmins(startupCtx, users, cfg.Auth.AdminEmails); err != nil {
		slog.Error("failed to grant admin roles", "error", err)
		os.Exit(1)
	}

	backend, err := newImageBackend(startupCtx, cfg)
	if err != nil {
		slog.Error("failed to initialize image storage", "error", err)
		os.Exit(1)
	}

	imageStore, err := images.NewStore(backend, images.Options{
		Sizes:        cfg.Images.Sizes,
		Quality:      cfg.Images.Quality,
		MaxBytes:     cfg.Images.MaxUploadBytes,
		FetchTimeout: cfg.Images.FetchTimeout,
	})
	if err != nil {
		slog.Error("failed to initialize image store", "error", err)
		os.Exit(1)
	}
	slog.Info("image storage initialized", "backend", cfg.Images.Backend, "sizes", cfg.Images.Sizes)

	sweeper := images.NewSweeper(backend, users, cfg.Images.SweepInterval, cfg.Images.SweepGrace)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go sweeper.Start(sweepCtx)

	tokens := auth.NewJWTService(cfg.Auth.JWTKey, cfg.Auth.TokenTTL)
	accounts := auth.NewService(users, imageStore, tokens, cfg.Auth.PasswordMinLength)

	server := api.NewServer(cfg, database, accounts, tokens, imageStore)

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

func newImageBackend(ctx context.Context, cfg *config.Config) (images.Backend, error) {
	if cfg.Images.Backend == config.ImageBackendS3 {
		s3 := cfg.Images.S3
		return images.NewS3Backend(ctx, images.S3Options{
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			UseSSL:    s3.UseSSL,
		})
	}
	return images.NewLocalBackend(cfg.Images.Dir)
}

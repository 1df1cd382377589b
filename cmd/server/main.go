package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/mailer"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/publish"
	"github.com/ignite/newsletter/internal/store"
	"github.com/ignite/newsletter/internal/subscription"
	"github.com/ignite/newsletter/internal/uploads"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w", port, addr, err)
	}
	return ln.Close()
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("load configuration", "error", err.Error())
		os.Exit(1)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("pre-flight check failed", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Database.URL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database unreachable", "error", err.Error())
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		logger.Error("ensure schema", "error", err.Error())
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, listing cache disabled", "addr", cfg.Redis.Addr, "error", err.Error())
			rdb = nil
		}
	}

	subscribers := store.NewSubscriberStore(db)
	posts := store.NewPostStore(db)
	cachedPosts := store.NewCachedPosts(posts, rdb, cfg.Redis.TTL())

	ses := mailer.NewSESMailer(ctx, cfg.SES, cfg.Mail)
	renderer := mailer.NewRenderer(cfg.Mail.BaseURL, cfg.Mail.NewsletterName)

	var uploadStore uploads.Store
	var uploadsDir string
	switch cfg.Storage.Type {
	case "s3":
		s3Store, err := uploads.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region)
		if err != nil {
			logger.Error("configure S3 uploads", "error", err.Error())
			os.Exit(1)
		}
		uploadStore = s3Store
	default:
		local, err := uploads.NewLocalStore(cfg.Storage.LocalPath, cfg.Mail.BaseURL)
		if err != nil {
			logger.Error("configure local uploads", "error", err.Error())
			os.Exit(1)
		}
		uploadStore = local
		uploadsDir = local.Dir()
	}

	manager := subscription.NewManager(subscribers, ses, renderer, cfg.Mail.AdminEmail)
	orchestrator := publish.NewOrchestrator(
		posts,
		subscribers,
		cachedPosts,
		ses,
		renderer,
		cfg.Mail.AdminEmail,
		cfg.Publish.Secret,
		cfg.Publish.SendInterval(),
	)

	handlers := api.NewHandlers(manager, orchestrator, cachedPosts, uploadStore)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler:           api.Routes(handlers, uploadsDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err.Error())
	}

	// Let in-flight welcome/alert emails finish before exiting.
	manager.Wait()
	logger.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/mailer"
	"storefront/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM
const shutdownTimeout = 30 * time.Second

// serveUntilSignal runs the server until it fails or the process is asked to
// stop, then drains connections and releases the server's resources.
func serveUntilSignal(srv *server.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		srv.Close()
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := srv.Close(); err != nil {
		log.Error("Error closing server resources", zap.Error(err))
	}
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Options{
		Env:   cfg.Server.Env,
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("admin_auth_mode", cfg.Admin.Mode),
		zap.Bool("redis", cfg.Redis.Enabled()),
	)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize database
	dbService, err := database.New(startupCtx, cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db := dbService.DB()

	// Check database health
	health := dbService.Health(startupCtx)
	log.Info("Database health check", zap.Any("health", health))

	// Run migrations
	if err := database.RunMigrations(startupCtx, db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			// the cache and rate limiter degrade on their own
			log.Warn("Redis is not reachable at startup", zap.Error(err))
		}
	}

	orderMailer, err := mailer.New(
		mailer.NewSMTPSender(mailer.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Secure:   cfg.SMTP.Secure,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
		}),
		mailer.Options{
			From:           cfg.SMTP.From,
			StoreName:      cfg.Store.Name,
			ReplyTo:        cfg.Store.ReplyTo,
			OrderEmailTo:   cfg.Store.OrderEmailTo,
			CurrencySymbol: cfg.Store.CurrencySymbol,
		},
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Create server
	srv, err := server.NewServer(cfg, log, server.Dependencies{
		DB:       db,
		Redis:    redisClient,
		Notifier: orderMailer,
	})
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	if err := serveUntilSignal(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}
	log.Info("Graceful shutdown complete")
}

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

	"github.com/Dan9191/card-service/internal/config"
	"github.com/Dan9191/card-service/internal/handler"
	"github.com/Dan9191/card-service/internal/integrations/faker"
	"github.com/Dan9191/card-service/internal/middleware"
	"github.com/Dan9191/card-service/internal/repository"
	"github.com/Dan9191/card-service/internal/service"
	"github.com/Dan9191/card-service/internal/utils/email"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize storage
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := repository.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage, err)
	}
	defer closeStore()
	logger.Infof("Using %s storage", cfg.Storage)

	// Optional operator alerts
	var notifier service.Notifier
	if cfg.NotificationsEnabled() {
		notifier = email.NewSender(cfg, logger)
	} else {
		logger.Info("SMTP not configured, platform alerts disabled")
	}

	// Initialize layers
	names := faker.NewClient(cfg, logger)
	svc := service.NewService(store, names, notifier, logger, cfg)
	h := handler.NewHandler(svc, logger)

	gate := middleware.NewAccessGate(svc, logger, cfg.TrustProxyHeaders)
	if redisClient := connectRedis(cfg, logger); redisClient != nil {
		defer redisClient.Close()
		gate.WithRateLimiter(middleware.NewRedisRateLimiter(redisClient, cfg.RateLimitPrefix))
	}

	// Setup router
	r := handler.NewRouter(h, gate, cfg.AdminSecretKey)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      buildHandler(r, cfg, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Infof("Starting server on %s", addr)
	if err := serve(server, stop, logger); err != nil {
		logger.Errorf("Server failed: %v", err)
		exitCode = 1
	}
}

// buildHandler wraps the router with the middleware that must also see
// unmatched requests: request logging, CORS and gzip compression.
func buildHandler(r http.Handler, cfg *config.Config, logger *logrus.Logger) http.Handler {
	compressed := chimiddleware.Compress(5, "application/json", "application/xml", "text/plain")(r)
	withCORS := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Encoding", "Content-Type", middleware.APIKeyHeader, middleware.AdminKeyHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "Retry-After"},
		MaxAge:         300,
	})(compressed)
	return middleware.RequestLogger(logger)(withCORS)
}

// serve runs server until it fails or a value arrives on stop, then shuts it
// down gracefully. A clean shutdown returns nil.
func serve(server *http.Server, stop <-chan os.Signal, logger *logrus.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// connectRedis returns nil when rate limiting is not configured or Redis is
// unreachable; requests are then not rate limited.
func connectRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, rate limiting disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warnf("Invalid REDIS_URL, rate limiting disabled: %v", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis ping failed, rate limiting disabled: %v", err)
		client.Close()
		return nil
	}
	logger.Info("Redis connected, rate limiting enabled")
	return client
}

// Package server wires the reference sync server: sqlite storage,
// auth and entity handlers, and the middleware chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/server/handlers"
	"github.com/iudanet/mealsync/internal/server/middleware"
	"github.com/iudanet/mealsync/internal/server/storage"
	"github.com/iudanet/mealsync/internal/server/storage/sqlite"
	"github.com/iudanet/mealsync/pkg/api"
)

// Значения по умолчанию
const (
	DefaultAddr            = ":8080"
	DefaultDBPath          = "mealsync.db"
	DefaultAccessTokenTTL  = 24 * time.Hour
	DefaultRateLimit       = 600
	DefaultAuthRateLimit   = 20
	DefaultRateWindow      = time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Config настройки сервера
type Config struct {
	Addr            string
	DBPath          string
	Version         string
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	AuthRateLimit   int
	// Clock nil означает системные часы
	Clock clock.Clock
}

func (c *Config) withDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.AuthRateLimit <= 0 {
		c.AuthRateLimit = DefaultAuthRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = DefaultRateWindow
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Storage все, что нужно handlers от хранилища
type Storage interface {
	storage.UserStorage
	storage.EntityStorage
	handlers.Pinger
}

// NewRouter собирает маршруты и middleware
// Возвращенная функция останавливает фоновые горутины rate limiter
func NewRouter(cfg Config, st Storage, logger *slog.Logger) (http.Handler, func()) {
	cfg.withDefaults()

	tokens := handlers.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.Clock)

	authHandler := handlers.NewAuthHandler(logger, st, tokens, cfg.Clock)
	entityHandler := handlers.NewEntityHandler(logger, st)
	healthHandler := handlers.NewHealthHandler(logger, st, cfg.Version)

	// auth endpoints ограничены строже, по IP
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.RateWindow, cfg.Clock, logger)
	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, cfg.Clock, logger)

	public := authLimiter.Middleware()
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(logger, tokens)(apiLimiter.Middleware()(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+api.PathHealth, healthHandler.Health)

	mux.Handle("POST "+api.PathRegister, public(http.HandlerFunc(authHandler.Register)))
	mux.Handle("GET "+api.PathSalt+"{username}", public(http.HandlerFunc(authHandler.GetSalt)))
	mux.Handle("POST "+api.PathLogin, public(http.HandlerFunc(authHandler.Login)))

	mux.Handle("GET "+api.PathEntities+"{type}", protected(entityHandler.List))
	mux.Handle("POST "+api.PathEntities+"{type}", protected(entityHandler.Create))
	mux.Handle("PUT "+api.PathEntities+"{type}/{id}", protected(entityHandler.Update))
	mux.Handle("DELETE "+api.PathEntities+"{type}/{id}", protected(entityHandler.Delete))

	// Recovery внутри Logging, чтобы 500 после panic тоже попал в лог
	handler := middleware.LoggingMiddleware(logger, api.PathHealth)(
		middleware.RecoveryMiddleware(logger)(mux),
	)

	stop := func() {
		authLimiter.Stop()
		apiLimiter.Stop()
	}

	return handler, stop
}

// Run открывает БД и обслуживает запросы до отмены ctx
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	cfg.withDefaults()

	if len(cfg.JWTSecret) == 0 {
		return errors.New("jwt secret is required")
	}

	st, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	handler, stop := NewRouter(cfg, st, logger)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr), slog.String("db", cfg.DBPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

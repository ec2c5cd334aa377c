package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/mealsync/internal/server"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", envOr("MEALSYNC_ADDR", server.DefaultAddr), "HTTP listen address (env MEALSYNC_ADDR)")
	dbPath := flag.String("db", envOr("MEALSYNC_DB", server.DefaultDBPath), "Path to SQLite database (env MEALSYNC_DB)")
	jwtSecret := flag.String("jwt-secret", os.Getenv("MEALSYNC_JWT_SECRET"), "Secret for signing access tokens (env MEALSYNC_JWT_SECRET)")
	tokenTTL := flag.Duration("token-ttl", server.DefaultAccessTokenTTL, "Access token lifetime")
	rateLimit := flag.Int("rate-limit", server.DefaultRateLimit, "Requests per minute per user")
	authRateLimit := flag.Int("auth-rate-limit", server.DefaultAuthRateLimit, "Auth requests per minute per IP")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Останавливаемся по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := server.Config{
		Addr:           *addr,
		DBPath:         *dbPath,
		Version:        Version,
		JWTSecret:      []byte(*jwtSecret),
		AccessTokenTTL: *tokenTTL,
		RateLimit:      *rateLimit,
		AuthRateLimit:  *authRateLimit,
		RateWindow:     time.Minute,
	}

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("MealSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/mealsync/internal/client/api"
	"github.com/iudanet/mealsync/internal/client/auth"
	"github.com/iudanet/mealsync/internal/client/cli"
	"github.com/iudanet/mealsync/internal/client/conflict"
	"github.com/iudanet/mealsync/internal/client/connectivity"
	"github.com/iudanet/mealsync/internal/client/data"
	"github.com/iudanet/mealsync/internal/client/iocli"
	"github.com/iudanet/mealsync/internal/client/pending"
	"github.com/iudanet/mealsync/internal/client/storage/boltdb"
	"github.com/iudanet/mealsync/internal/client/sync"
	"github.com/iudanet/mealsync/internal/clock"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("MEALSYNC_SERVER", "http://localhost:8080"), "Server URL (env MEALSYNC_SERVER)")
	dbPath := flag.String("db", envOr("MEALSYNC_CLIENT_DB", "mealsync-client.db"), "Path to local database (env MEALSYNC_CLIENT_DB)")
	workers := flag.Int("workers", sync.DefaultWorkers, "Parallel uploads during sync")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	stdio := iocli.NewStdio()

	if *showVersion {
		printVersion()
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		return 1
	}

	// Логи в stderr, чтобы не мешать выводу команд
	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		if errors.Is(err, boltdb.ErrLocked) {
			fmt.Fprintln(os.Stderr, "Is 'mealsync daemon' running on the same database?")
		}
		return 1
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	clk := clock.System{}
	apiClient := api.NewClient(*serverURL)

	pendingStore, err := pending.NewStore(ctx, boltStorage, boltStorage, clk, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	engine, err := sync.NewService(ctx, sync.Deps{
		API:           apiClient,
		Entities:      boltStorage,
		Metadata:      boltStorage,
		Pending:       pendingStore,
		Conflicts:     conflict.NewResolver(clk, logger),
		Connectivity:  connectivity.NewChecker(apiClient, connectivity.DefaultTimeout, logger),
		ConflictStore: boltStorage,
	}, sync.Options{
		Clock:   clk,
		Workers: *workers,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	c := cli.New(cli.Deps{
		IO:       stdio,
		Auth:     auth.NewService(apiClient, boltStorage, clk, logger),
		Engine:   engine,
		Data:     data.NewService(boltStorage, engine, clk, logger),
		Pending:  pendingStore,
		Clock:    clk,
		Logger:   logger,
	})

	if err := c.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUnknownCommand) {
			cli.PrintUsage(stdio)
		}
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("MealSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

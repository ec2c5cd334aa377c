// Package connectivity reports whether the sync server is reachable.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout ограничение на один health check
const DefaultTimeout = 3 * time.Second

//go:generate moq -out pinger_mock.go . Pinger

// Pinger вызывает health endpoint сервера
type Pinger interface {
	Health(ctx context.Context) error
}

// Checker probes the server health endpoint with a short timeout
type Checker struct {
	pinger  Pinger
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	online *bool
}

// NewChecker creates a checker. timeout <= 0 means DefaultTimeout.
func NewChecker(pinger Pinger, timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		pinger:  pinger,
		logger:  logger,
		timeout: timeout,
	}
}

// IsOnline returns true if the health endpoint answered with 2xx in time
func (c *Checker) IsOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.pinger.Health(ctx)
	online := err == nil

	c.mu.Lock()
	changed := c.online == nil || *c.online != online
	c.online = &online
	c.mu.Unlock()

	// Логируем только смену состояния
	if changed {
		if online {
			c.logger.Info("Server is reachable")
		} else {
			c.logger.Warn("Server is unreachable", "error", err)
		}
	}

	return online
}

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/server/handlers"
)

// RateLimiter ограничивает частоту запросов по ключу (token bucket)
// Бакет вмещает rate токенов и полностью пополняется за window
type RateLimiter struct {
	buckets  map[string]*bucket
	logger   *slog.Logger
	clk      clock.Clock
	cleanupC chan struct{}
	stopOnce sync.Once
	rate     int
	window   time.Duration
	mu       sync.Mutex
}

// bucket состояние лимита для одного ключа
type bucket struct {
	lastSeen time.Time
	tokens   float64
}

// NewRateLimiter создает новый rate limiter
// rate - максимальное количество запросов за window
func NewRateLimiter(rate int, window time.Duration, clk clock.Clock, logger *slog.Logger) *RateLimiter {
	if clk == nil {
		clk = clock.System{}
	}
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		window:   window,
		clk:      clk,
		logger:   logger,
		cleanupC: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные buckets
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldBuckets удаляет buckets, которые полностью восстановились
func (rl *RateLimiter) cleanupOldBuckets() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clk.Now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.window {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupC) })
}

// Allow списывает токен для ключа, если он есть
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clk.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.rate), lastSeen: now}
		rl.buckets[key] = b
	}

	// Пополняем пропорционально прошедшему времени
	if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens += float64(rl.rate) * elapsed.Seconds() / rl.window.Seconds()
		if b.tokens > float64(rl.rate) {
			b.tokens = float64(rl.rate)
		}
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Middleware ограничивает запросы по ключу клиента
// Аутентифицированные запросы считаются по user_id, остальные по IP
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			if !rl.Allow(key) {
				rl.logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("key", key),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				w.Header().Set("Retry-After", retryAfter(rl.rate, rl.window))
				writeError(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter время в секундах до появления следующего токена
func retryAfter(rate int, window time.Duration) string {
	seconds := int(window.Seconds()) / max(rate, 1)
	return strconv.Itoa(max(seconds, 1))
}

func clientKey(r *http.Request) string {
	if p, ok := handlers.PrincipalFrom(r.Context()); ok {
		return "user:" + p.UserID
	}
	return "ip:" + getClientIP(r)
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

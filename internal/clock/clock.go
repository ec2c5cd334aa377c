// Package clock abstracts wall-clock time so retry windows, retention and
// conflict heuristics can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// System использует time.Now
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time {
	return time.Now()
}

// Manual часы, которые двигаются только вручную.
// Используются в тестах для воспроизводимых сценариев.
type Manual struct {
	now time.Time
	mu  sync.Mutex
}

// NewManual создает часы, остановленные на заданном моменте
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the frozen time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Advance сдвигает часы вперед на d и возвращает новое время
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	return m.now
}

// Set устанавливает часы в заданный момент
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t
}

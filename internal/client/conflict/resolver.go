// Package conflict holds open divergences between local and server versions
// of an entity and applies resolution strategies to them.
package conflict

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/models"
)

var (
	// ErrConflictNotFound indicates that no conflict with the given id is stored
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrCustomVersionRequired indicates that ask_user was used without a version
	ErrCustomVersionRequired = errors.New("custom version required for ask_user strategy")

	// ErrUnknownStrategy indicates an unsupported resolution strategy
	ErrUnknownStrategy = errors.New("unknown conflict strategy")
)

const (
	// largeGap разница во времени, после которой побеждает более новая сторона
	largeGap = time.Hour
	// recentWindow окно "недавнего" изменения для асимметричной эвристики
	recentWindow = 24 * time.Hour
	// compatibleDuration допустимая разница Duration (минуты) для автоматического слияния
	compatibleDuration = 30
)

// Resolver stores conflicts keyed by models.ConflictID.
// Safe for concurrent use.
type Resolver struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	conflicts map[string]*models.ConflictResolution
	auto      map[models.EntityType]bool
}

// NewResolver creates a resolver with auto-resolution enabled for every entity type
func NewResolver(clk clock.Clock, logger *slog.Logger) *Resolver {
	if clk == nil {
		clk = clock.System{}
	}

	auto := make(map[models.EntityType]bool)
	for _, t := range models.AllEntityTypes() {
		auto[t] = true
	}

	return &Resolver{
		clock:     clk,
		logger:    logger,
		conflicts: make(map[string]*models.ConflictResolution),
		auto:      auto,
	}
}

// SetAutoResolve enables or disables automatic resolution for one entity type
func (r *Resolver) SetAutoResolve(t models.EntityType, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.auto[t] = enabled
}

// AddConflict stores the pair as an unresolved conflict, replacing any stored
// entry with the same id, then tries to resolve it automatically.
// Returns a copy of the stored conflict.
func (r *Resolver) AddConflict(local, server *models.Entity) *models.ConflictResolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	c := &models.ConflictResolution{
		ID:            models.ConflictID(local.Type, local.ID),
		Type:          local.Type,
		LocalVersion:  local.Clone(),
		ServerVersion: server.Clone(),
		DetectedAt:    now,
	}
	r.conflicts[c.ID] = c

	if r.auto[c.Type] {
		r.autoResolve(c, now)
	}

	if c.Resolved {
		r.logger.Info("Conflict auto-resolved",
			"conflict_id", c.ID,
			"strategy", c.Strategy)
	} else {
		r.logger.Info("Conflict requires manual resolution", "conflict_id", c.ID)
	}

	return c.Clone()
}

// autoResolve применяет эвристики по порядку, первая сработавшая побеждает
func (r *Resolver) autoResolve(c *models.ConflictResolution, now time.Time) {
	local, server := c.LocalVersion, c.ServerVersion

	// 1. Большой разрыв во времени
	gap := local.UpdatedAt.Sub(server.UpdatedAt).Abs()
	if gap > largeGap {
		if local.IsNewerThan(server) {
			resolve(c, models.StrategyUseLocal, local)
		} else {
			resolve(c, models.StrategyUseServer, server)
		}
		return
	}

	// 2. Только одна сторона менялась за последние сутки
	localRecent := now.Sub(local.UpdatedAt) <= recentWindow
	serverRecent := now.Sub(server.UpdatedAt) <= recentWindow
	if localRecent != serverRecent {
		if localRecent {
			resolve(c, models.StrategyUseLocal, local)
		} else {
			resolve(c, models.StrategyUseServer, server)
		}
		return
	}

	// 3. Совместимые версии
	if local.Name == server.Name && abs(local.Duration-server.Duration) <= compatibleDuration {
		resolve(c, models.StrategyMerge, MergeFields(local, server, now))
	}
}

func resolve(c *models.ConflictResolution, strategy models.ConflictStrategy, version *models.Entity) {
	c.Strategy = strategy
	c.ResolvedVersion = version.Clone()
	c.Resolved = true
}

// Restore loads previously persisted conflicts without re-running auto-resolution.
// Entries already held are replaced.
func (r *Resolver) Restore(conflicts []*models.ConflictResolution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range conflicts {
		r.conflicts[c.ID] = c.Clone()
	}
}

// ListConflicts returns every stored conflict, resolved or not, ordered by detection time
func (r *Resolver) ListConflicts() []*models.ConflictResolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*models.ConflictResolution, 0, len(r.conflicts))
	for _, c := range r.conflicts {
		list = append(list, c.Clone())
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].DetectedAt.Equal(list[j].DetectedAt) {
			return list[i].DetectedAt.Before(list[j].DetectedAt)
		}
		return list[i].ID < list[j].ID
	})

	return list
}

// Get returns a copy of one conflict
func (r *Resolver) Get(id string) (*models.ConflictResolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conflicts[id]
	if !ok {
		return nil, ErrConflictNotFound
	}
	return c.Clone(), nil
}

// ResolveConflict applies strategy to the conflict.
// custom is required for ask_user and ignored otherwise.
func (r *Resolver) ResolveConflict(id string, strategy models.ConflictStrategy, custom *models.Entity) (*models.ConflictResolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conflicts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrConflictNotFound)
	}

	switch strategy {
	case models.StrategyUseLocal:
		resolve(c, strategy, c.LocalVersion)
	case models.StrategyUseServer:
		resolve(c, strategy, c.ServerVersion)
	case models.StrategyMerge:
		resolve(c, strategy, MergeFields(c.LocalVersion, c.ServerVersion, r.clock.Now()))
	case models.StrategyAskUser:
		if custom == nil {
			return nil, ErrCustomVersionRequired
		}
		// Пользовательская версия всегда сохраняет идентичность конфликта
		v := custom.Clone()
		v.ID = c.LocalVersion.ID
		v.Type = c.Type
		resolve(c, strategy, v)
	default:
		return nil, fmt.Errorf("%q: %w", strategy, ErrUnknownStrategy)
	}

	r.logger.Info("Conflict resolved",
		"conflict_id", id,
		"strategy", strategy)

	return c.Clone(), nil
}

// ClearResolved removes resolved conflicts and returns how many were removed
func (r *Resolver) ClearResolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.conflicts {
		if c.Resolved {
			delete(r.conflicts, id)
			removed++
		}
	}
	return removed
}

// HasUnresolved reports whether any conflict awaits resolution
func (r *Resolver) HasUnresolved() bool {
	return r.CountUnresolved() > 0
}

// CountUnresolved returns the number of unresolved conflicts
func (r *Resolver) CountUnresolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.conflicts {
		if !c.Resolved {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

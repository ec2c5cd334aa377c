package models

import "time"

// ConflictStrategy способ разрешения конфликта
type ConflictStrategy string

const (
	StrategyUseLocal  ConflictStrategy = "use_local"
	StrategyUseServer ConflictStrategy = "use_server"
	StrategyMerge     ConflictStrategy = "merge"
	StrategyAskUser   ConflictStrategy = "ask_user"
)

// Valid reports whether s is a known strategy.
func (s ConflictStrategy) Valid() bool {
	switch s {
	case StrategyUseLocal, StrategyUseServer, StrategyMerge, StrategyAskUser:
		return true
	}
	return false
}

// ConflictResolution is a divergence between a local and a server version of one entity.
type ConflictResolution struct {
	DetectedAt      time.Time        `json:"detected_at"`
	LocalVersion    *Entity          `json:"local_version"`
	ServerVersion   *Entity          `json:"server_version"`
	ResolvedVersion *Entity          `json:"resolved_version,omitempty"`
	ID              string           `json:"id"`
	Type            EntityType       `json:"type"`
	Strategy        ConflictStrategy `json:"strategy,omitempty"`
	Resolved        bool             `json:"resolved"`
}

// ConflictID derives the conflict id, e.g. "recipe_<id>".
func ConflictID(t EntityType, entityID string) string {
	return string(t) + "_" + entityID
}

// Clone создает глубокую копию конфликта
func (c *ConflictResolution) Clone() *ConflictResolution {
	cp := *c
	cp.LocalVersion = c.LocalVersion.Clone()
	cp.ServerVersion = c.ServerVersion.Clone()
	cp.ResolvedVersion = c.ResolvedVersion.Clone()
	return &cp
}

package api

import (
	"time"

	"github.com/iudanet/mealsync/internal/models"
)

// Entity представляет сущность в REST API
type Entity struct {
	UpdatedAt   time.Time         `json:"updated_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Items       []string          `json:"items,omitempty"`
	Steps       []string          `json:"steps,omitempty"`
	Duration    int               `json:"duration,omitempty"`
}

// EntityListResponse ответ на GET PathEntities + {type}
type EntityListResponse struct {
	Entities []Entity `json:"entities"`
}

// FromModel конвертирует доменную сущность в API формат
func FromModel(e *models.Entity) Entity {
	return Entity{
		ID:          e.ID,
		Type:        string(e.Type),
		Name:        e.Name,
		Description: e.Description,
		Items:       e.Items,
		Steps:       e.Steps,
		Duration:    e.Duration,
		Attributes:  e.Attributes,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToModel конвертирует API сущность в доменную
func (e Entity) ToModel() *models.Entity {
	return &models.Entity{
		ID:          e.ID,
		Type:        models.EntityType(e.Type),
		Name:        e.Name,
		Description: e.Description,
		Items:       e.Items,
		Steps:       e.Steps,
		Duration:    e.Duration,
		Attributes:  e.Attributes,
		UpdatedAt:   e.UpdatedAt,
	}
}

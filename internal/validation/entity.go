package validation

import (
	"fmt"
	"regexp"

	"github.com/iudanet/mealsync/internal/models"
)

// EntityIDPattern допустимый id сущности: uuid или короткий slug
var EntityIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MaxNameLen максимальная длина названия сущности
	MaxNameLen = 200
	// MaxDescriptionLen максимальная длина описания
	MaxDescriptionLen = 10000
	// MaxListLen максимальное число элементов в Items и Steps
	MaxListLen = 500
	// MaxDuration одна неделя в минутах
	MaxDuration = 7 * 24 * 60
)

// ValidateEntityID проверяет формат id сущности
func ValidateEntityID(id string) error {
	if !EntityIDPattern.MatchString(id) {
		return fmt.Errorf("entity id must be 1-64 characters of letters, numbers, '-' or '_'")
	}
	return nil
}

// ValidateEntity проверяет снимок сущности перед сохранением или отправкой
func ValidateEntity(e *models.Entity) error {
	if e == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if err := ValidateEntityID(e.ID); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown entity type %q", e.Type)
	}
	if e.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(e.Name) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}
	if len(e.Description) > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	if e.Duration < 0 || e.Duration > MaxDuration {
		return fmt.Errorf("duration must be between 0 and %d minutes", MaxDuration)
	}
	if len(e.Items) > MaxListLen || len(e.Steps) > MaxListLen {
		return fmt.Errorf("items and steps must not exceed %d entries", MaxListLen)
	}
	if e.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

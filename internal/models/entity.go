package models

import (
	"maps"
	"slices"
	"time"
)

// EntityType тип доменной сущности, которую синхронизирует движок
type EntityType string

const (
	EntityRecipe       EntityType = "recipe"
	EntityMealPlan     EntityType = "meal_plan"
	EntityShoppingList EntityType = "shopping_list"
	EntityUserProfile  EntityType = "user_profile"
)

// AllEntityTypes возвращает все поддерживаемые типы в порядке полной синхронизации
func AllEntityTypes() []EntityType {
	return []EntityType{EntityRecipe, EntityMealPlan, EntityShoppingList, EntityUserProfile}
}

// Valid reports whether t is one of the supported entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityRecipe, EntityMealPlan, EntityShoppingList, EntityUserProfile:
		return true
	}
	return false
}

func (t EntityType) String() string {
	return string(t)
}

// Entity is the uniform snapshot of any synchronized domain object.
// Recipes use every field; other types leave the ones they don't need empty.
type Entity struct {
	UpdatedAt time.Time `json:"updated_at"`
	// Attributes поля, специфичные для типа сущности
	Attributes  map[string]string `json:"attributes,omitempty"`
	ID          string            `json:"id"`
	Type        EntityType        `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	// Items ингредиенты рецепта, позиции списка покупок или рецепты плана питания
	Items []string `json:"items,omitempty"`
	// Steps шаги приготовления
	Steps []string `json:"steps,omitempty"`
	// Duration время приготовления в минутах
	Duration int `json:"duration,omitempty"`
}

// IsNewerThan сравнивает сущности по UpdatedAt (Last-Write-Wins)
func (e *Entity) IsNewerThan(other *Entity) bool {
	return e.UpdatedAt.After(other.UpdatedAt)
}

// Clone создает глубокую копию сущности
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Items = slices.Clone(e.Items)
	c.Steps = slices.Clone(e.Steps)
	if e.Attributes != nil {
		c.Attributes = maps.Clone(e.Attributes)
	}
	return &c
}

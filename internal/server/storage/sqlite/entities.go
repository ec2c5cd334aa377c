package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server/storage"
)

// entityRow колонки сущности в том виде, в котором они лежат в таблице
type entityRow struct {
	id          string
	entityType  string
	name        string
	description string
	items       string
	steps       string
	attributes  string
	duration    int
	updatedAt   int64
}

// scanner общий интерфейс для *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

const entityColumns = `id, type, name, description, duration, items, steps, attributes, updated_at`

// ListEntities returns all entities of a type owned by the user
func (s *Storage) ListEntities(ctx context.Context, userID string, entityType models.EntityType) ([]*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE user_id = ? AND type = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := make([]*models.Entity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}

	return entities, nil
}

// GetEntity retrieves one entity
func (s *Storage) GetEntity(ctx context.Context, userID string, entityType models.EntityType, id string) (*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE user_id = ? AND type = ? AND id = ?
	`

	entity, err := scanEntity(s.db.QueryRowContext(ctx, query, userID, string(entityType), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, err
	}

	return entity, nil
}

// UpsertEntity inserts or replaces an entity
func (s *Storage) UpsertEntity(ctx context.Context, userID string, entity *models.Entity) (bool, error) {
	row, err := toRow(entity)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE user_id = ? AND type = ? AND id = ?`,
		userID, row.entityType, row.id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entity: %w", err)
	}

	query := `
		INSERT INTO entities (user_id, ` + entityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, type, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			duration = excluded.duration,
			items = excluded.items,
			steps = excluded.steps,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query,
		userID,
		row.id,
		row.entityType,
		row.name,
		row.description,
		row.duration,
		row.items,
		row.steps,
		row.attributes,
		row.updatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return exists == 0, nil
}

// DeleteEntity removes an entity
func (s *Storage) DeleteEntity(ctx context.Context, userID string, entityType models.EntityType, id string) error {
	query := `DELETE FROM entities WHERE user_id = ? AND type = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, query, userID, string(entityType), id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrEntityNotFound
	}

	return nil
}

func toRow(entity *models.Entity) (*entityRow, error) {
	items, err := json.Marshal(nonNil(entity.Items))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}
	steps, err := json.Marshal(nonNil(entity.Steps))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal steps: %w", err)
	}
	attributes := []byte("{}")
	if len(entity.Attributes) > 0 {
		attributes, err = json.Marshal(entity.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attributes: %w", err)
		}
	}

	return &entityRow{
		id:          entity.ID,
		entityType:  string(entity.Type),
		name:        entity.Name,
		description: entity.Description,
		duration:    entity.Duration,
		items:       string(items),
		steps:       string(steps),
		attributes:  string(attributes),
		updatedAt:   entity.UpdatedAt.UnixNano(),
	}, nil
}

func scanEntity(sc scanner) (*models.Entity, error) {
	var row entityRow
	err := sc.Scan(
		&row.id,
		&row.entityType,
		&row.name,
		&row.description,
		&row.duration,
		&row.items,
		&row.steps,
		&row.attributes,
		&row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	entity := &models.Entity{
		ID:          row.id,
		Type:        models.EntityType(row.entityType),
		Name:        row.name,
		Description: row.description,
		Duration:    row.duration,
		UpdatedAt:   time.Unix(0, row.updatedAt).UTC(),
	}

	if err := json.Unmarshal([]byte(row.items), &entity.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal([]byte(row.steps), &entity.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if err := json.Unmarshal([]byte(row.attributes), &entity.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}

	// пустые коллекции возвращаем как nil, как их отдает клиент
	if len(entity.Items) == 0 {
		entity.Items = nil
	}
	if len(entity.Steps) == 0 {
		entity.Steps = nil
	}
	if len(entity.Attributes) == 0 {
		entity.Attributes = nil
	}

	return entity, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server/storage"
)

const userColumns = `id, username, auth_key_hash, public_salt, created_at, last_login`

// CreateUser stores a new account, ErrUserAlreadyExists if the username is taken
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	var lastLogin sql.NullInt64
	if user.LastLogin != nil {
		lastLogin = sql.NullInt64{Int64: user.LastLogin.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.AuthKeyHash,
		user.PublicSalt,
		user.CreatedAt.UnixNano(),
		lastLogin,
	)
	if err != nil {
		// modernc не экспортирует коды ошибок ограничений в удобном виде
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByUsername returns ErrUserNotFound for an unknown username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetUserByID returns ErrUserNotFound for an unknown id
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

// UpdateLastLogin records a successful login
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, lastLogin.UnixNano(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

func scanUser(sc scanner) (*models.User, error) {
	var (
		user      models.User
		createdAt int64
		lastLogin sql.NullInt64
	)

	err := sc.Scan(&user.ID, &user.Username, &user.AuthKeyHash, &user.PublicSalt, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastLogin.Valid {
		t := time.Unix(0, lastLogin.Int64).UTC()
		user.LastLogin = &t
	}
	return &user, nil
}

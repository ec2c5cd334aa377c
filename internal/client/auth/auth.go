// Package auth registers and logs the user in against the sync server
// and keeps the resulting session in local storage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/crypto"
	"github.com/iudanet/mealsync/internal/validation"
	pkgapi "github.com/iudanet/mealsync/pkg/api"
)

// ErrNotAuthenticated returned when there is no usable session
var ErrNotAuthenticated = errors.New("not authenticated, run 'login' first")

//go:generate moq -out apiclient_mock.go . APIClient

// APIClient часть HTTP клиента, нужная для авторизации
type APIClient interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	GetSalt(ctx context.Context, username string) (*pkgapi.SaltResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	SetAccessToken(token string)
}

// Service registers accounts and owns the device session.
type Service struct {
	apiClient APIClient
	store     storage.SessionStorage
	clk       clock.Clock
	logger    *slog.Logger
}

func NewService(apiClient APIClient, store storage.SessionStorage, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		apiClient: apiClient,
		store:     store,
		clk:       clk,
		logger:    logger,
	}
}

// Register регистрирует нового пользователя
// Пароль не покидает клиент: на сервер уходит только хеш производного ключа
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	// 1. Генерируем публичную соль
	publicSalt, err := crypto.NewSalt()
	if err != nil {
		return "", err
	}

	// 2. Argon2id -> SHA256
	authKeyHash, err := crypto.AuthKeyHash(password, username, publicSalt)
	if err != nil {
		return "", fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Отправляем запрос на регистрацию
	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSalt,
	})
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("username", username))

	return resp.UserID, nil
}

// Login выполняет аутентификацию и сохраняет сессию
func (s *Service) Login(ctx context.Context, username, password string) (*storage.Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("invalid password: password cannot be empty")
	}

	// 1. Получаем public_salt с сервера
	saltResp, err := s.apiClient.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Тот же вывод ключа, что и при регистрации
	authKeyHash, err := crypto.AuthKeyHash(password, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Отправляем запрос на логин
	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := &storage.Session{
		Username:    username,
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   s.clk.Now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.apiClient.SetAccessToken(session.AccessToken)
	s.logger.InfoContext(ctx, "user logged in", slog.String("username", username))

	return session, nil
}

// Restore загружает сохраненную сессию и передает токен клиенту
func (s *Service) Restore(ctx context.Context) (*storage.Session, error) {
	session, err := s.store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSession) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(s.clk.Now()) {
		s.logger.DebugContext(ctx, "session expired", slog.String("username", session.Username))
		return nil, ErrNotAuthenticated
	}

	s.apiClient.SetAccessToken(session.AccessToken)
	return session, nil
}

// Logout удаляет локальную сессию
// Access token не отзывается на сервере, он истечет сам
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.apiClient.SetAccessToken("")
	return nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/pkg/api"
)

// ErrUnauthorized returned when the server rejects the access token
var ErrUnauthorized = errors.New("unauthorized")

// StatusError ответ сервера с кодом не из диапазона 2xx
type StatusError struct {
	Message string
	Body    string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// Unwrap позволяет проверять 401 через errors.Is(err, ErrUnauthorized)
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// DefaultTimeout ограничивает один HTTP запрос целиком
const DefaultTimeout = 30 * time.Second

// requestIDHeader совпадает с заголовком, который логирует сервер
const requestIDHeader = "X-Request-ID"

// Client talks to the sync server REST API. It is safe for concurrent use;
// the sync engine shares one Client between its upload workers.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu          sync.RWMutex
	accessToken string
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to plug in a transport in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Bearer токен не должен уходить на чужой хост после редиректа
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAccessToken задает Bearer токен для последующих запросов
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessToken = token
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accessToken
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, api.PathHealth, nil, &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	err := c.doRequest(ctx, http.MethodPost, api.PathRegister, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// GetSalt получает public_salt пользователя
func (c *Client) GetSalt(ctx context.Context, username string) (*api.SaltResponse, error) {
	var resp api.SaltResponse
	path := api.PathSalt + url.PathEscape(username)
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("get salt request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, api.PathLogin, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// FetchAll получает все сущности типа с сервера
func (c *Client) FetchAll(ctx context.Context, entityType models.EntityType) ([]*models.Entity, error) {
	var resp api.EntityListResponse
	if err := c.doRequest(ctx, http.MethodGet, entitiesPath(entityType, ""), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", entityType, err)
	}

	entities := make([]*models.Entity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		m := e.ToModel()
		if m.Type == "" {
			m.Type = entityType
		}
		entities = append(entities, m)
	}
	return entities, nil
}

// Create создает сущность на сервере
func (c *Client) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	var resp api.Entity
	if err := c.doRequest(ctx, http.MethodPost, entitiesPath(entity.Type, ""), api.FromModel(entity), &resp); err != nil {
		return nil, fmt.Errorf("create %s %s failed: %w", entity.Type, entity.ID, err)
	}
	return resp.ToModel(), nil
}

// Update заменяет сущность на сервере
func (c *Client) Update(ctx context.Context, id string, entity *models.Entity) (*models.Entity, error) {
	var resp api.Entity
	if err := c.doRequest(ctx, http.MethodPut, entitiesPath(entity.Type, id), api.FromModel(entity), &resp); err != nil {
		return nil, fmt.Errorf("update %s %s failed: %w", entity.Type, id, err)
	}
	return resp.ToModel(), nil
}

// Delete удаляет сущность на сервере
func (c *Client) Delete(ctx context.Context, entityType models.EntityType, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, entitiesPath(entityType, id), nil, nil); err != nil {
		return fmt.Errorf("delete %s %s failed: %w", entityType, id, err)
	}
	return nil
}

func entitiesPath(entityType models.EntityType, id string) string {
	path := api.PathEntities + url.PathEscape(string(entityType))
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return path
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		}
		return statusErr
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

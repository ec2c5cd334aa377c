package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/mealsync/internal/clock"
	"github.com/iudanet/mealsync/internal/crypto"
	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server/storage"
	"github.com/iudanet/mealsync/internal/validation"
	"github.com/iudanet/mealsync/pkg/api"
)

const maxAuthBody = 4 << 10

//go:generate moq -out userstorage_mock_test.go -pkg handlers ../storage UserStorage

// TokenIssuer is satisfied by *Tokens.
type TokenIssuer interface {
	Issue(userID, username string) (string, int64, error)
}

// AuthHandler serves registration, salt lookup and login. The server never
// sees a password, only the hash of the key the client derived from it.
type AuthHandler struct {
	logger *slog.Logger
	users  storage.UserStorage
	tokens TokenIssuer
	clk    clock.Clock
}

func NewAuthHandler(logger *slog.Logger, users storage.UserStorage, tokens TokenIssuer, clk clock.Clock) *AuthHandler {
	if clk == nil {
		clk = clock.System{}
	}
	return &AuthHandler{logger: logger, users: users, tokens: tokens, clk: clk}
}

// Register обрабатывает POST api.PathRegister
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if !h.decodeAuth(w, r, &req) {
		return
	}
	if msg := checkCredentials(req.Username, req.AuthKeyHash); msg != "" {
		sendError(h.logger, w, msg, http.StatusBadRequest)
		return
	}
	if req.PublicSalt == "" {
		sendError(h.logger, w, "public_salt is required", http.StatusBadRequest)
		return
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Username:    req.Username,
		AuthKeyHash: req.AuthKeyHash,
		PublicSalt:  req.PublicSalt,
		CreatedAt:   h.clk.Now().UTC(),
	}

	err := h.users.CreateUser(ctx, user)
	switch {
	case errors.Is(err, storage.ErrUserAlreadyExists):
		h.logger.WarnContext(ctx, "username taken", slog.String("username", req.Username))
		sendError(h.logger, w, "username already taken", http.StatusConflict)
		return
	case err != nil:
		h.internalError(w, r, "failed to create user", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered", slog.String("username", user.Username), slog.String("user_id", user.ID))
	sendJSON(h.logger, w, api.RegisterResponse{UserID: user.ID, Message: "User registered successfully"}, http.StatusCreated)
}

// GetSalt обрабатывает GET api.PathSalt + {username}
func (h *AuthHandler) GetSalt(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		sendError(h.logger, w, "username is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateUsername(username); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), username)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		sendError(h.logger, w, "user not found", http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, "failed to get user", err)
	default:
		sendJSON(h.logger, w, api.SaltResponse{PublicSalt: user.PublicSalt}, http.StatusOK)
	}
}

// Login обрабатывает POST api.PathLogin
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if !h.decodeAuth(w, r, &req) {
		return
	}
	if msg := checkCredentials(req.Username, req.AuthKeyHash); msg != "" {
		sendError(h.logger, w, msg, http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		h.internalError(w, r, "failed to get user", err)
		return
	}
	// Неизвестный пользователь и неверный ключ неразличимы для клиента
	if user == nil || crypto.VerifyAuthKeyHash(req.AuthKeyHash, user.AuthKeyHash) != nil {
		h.logger.WarnContext(ctx, "login rejected", slog.String("username", req.Username))
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresIn, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.internalError(w, r, "failed to issue token", err)
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID, h.clk.Now().UTC()); err != nil {
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in", slog.String("username", user.Username), slog.String("user_id", user.ID))
	sendJSON(h.logger, w, api.TokenResponse{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}

func (h *AuthHandler) decodeAuth(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "bad auth request body", slog.String("path", r.URL.Path), slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
}

// checkCredentials возвращает сообщение для клиента или пустую строку
func checkCredentials(username, authKeyHash string) string {
	if err := validation.ValidateUsername(username); err != nil {
		return err.Error()
	}
	if authKeyHash == "" {
		return "auth_key_hash is required"
	}
	return ""
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server/storage"
	"github.com/iudanet/mealsync/internal/validation"
	"github.com/iudanet/mealsync/pkg/api"
)

// maxEntityBody ограничение размера тела запроса
const maxEntityBody = 1 << 20

// EntityHandler обслуживает REST API сущностей:
//
//	GET    /api/v1/entities/{type}
//	POST   /api/v1/entities/{type}
//	PUT    /api/v1/entities/{type}/{id}
//	DELETE /api/v1/entities/{type}/{id}
//
// POST и PUT сохраняют присланную версию как есть, повтор запроса безопасен.
type EntityHandler struct {
	logger  *slog.Logger
	storage storage.EntityStorage
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(logger *slog.Logger, storage storage.EntityStorage) *EntityHandler {
	return &EntityHandler{
		logger:  logger,
		storage: storage,
	}
}

// List обрабатывает GET /api/v1/entities/{type}
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, entityType, ok := h.scope(w, r)
	if !ok {
		return
	}

	entities, err := h.storage.ListEntities(ctx, userID, entityType)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list entities",
			slog.String("user_id", userID),
			slog.String("type", entityType.String()),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.EntityListResponse{Entities: make([]api.Entity, 0, len(entities))}
	for _, e := range entities {
		resp.Entities = append(resp.Entities, api.FromModel(e))
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Create обрабатывает POST /api/v1/entities/{type}
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, entityType, ok := h.scope(w, r)
	if !ok {
		return
	}

	entity, ok := h.decode(w, r, entityType)
	if !ok {
		return
	}

	h.save(w, r, userID, entity)
}

// Update обрабатывает PUT /api/v1/entities/{type}/{id}
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, entityType, ok := h.scope(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := validation.ValidateEntityID(id); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	entity, ok := h.decode(w, r, entityType)
	if !ok {
		return
	}
	if entity.ID == "" {
		entity.ID = id
	}
	if entity.ID != id {
		sendError(h.logger, w, "entity id does not match path", http.StatusBadRequest)
		return
	}

	h.save(w, r, userID, entity)
}

// Delete обрабатывает DELETE /api/v1/entities/{type}/{id}
// Удаление отсутствующей сущности тоже отвечает 204
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, entityType, ok := h.scope(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := validation.ValidateEntityID(id); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.storage.DeleteEntity(ctx, userID, entityType, id)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		h.logger.ErrorContext(ctx, "failed to delete entity",
			slog.String("user_id", userID),
			slog.String("id", id),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "entity deleted",
		slog.String("user_id", userID),
		slog.String("type", entityType.String()),
		slog.String("id", id))

	w.WriteHeader(http.StatusNoContent)
}

// scope извлекает пользователя и тип сущности из запроса
func (h *EntityHandler) scope(w http.ResponseWriter, r *http.Request) (string, models.EntityType, bool) {
	// user_id установлен AuthMiddleware
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "user ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return "", "", false
	}

	entityType := models.EntityType(r.PathValue("type"))
	if !entityType.Valid() {
		sendError(h.logger, w, "unknown entity type", http.StatusNotFound)
		return "", "", false
	}

	return principal.UserID, entityType, true
}

func (h *EntityHandler) decode(w http.ResponseWriter, r *http.Request, entityType models.EntityType) (*models.Entity, bool) {
	var req api.Entity
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEntityBody)).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode entity", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}

	entity := req.ToModel()
	if entity.Type == "" {
		entity.Type = entityType
	}
	if entity.Type != entityType {
		sendError(h.logger, w, "entity type does not match path", http.StatusBadRequest)
		return nil, false
	}

	return entity, true
}

func (h *EntityHandler) save(w http.ResponseWriter, r *http.Request, userID string, entity *models.Entity) {
	ctx := r.Context()

	if err := validation.ValidateEntity(entity); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.storage.UpsertEntity(ctx, userID, entity)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save entity",
			slog.String("user_id", userID),
			slog.String("id", entity.ID),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "entity saved",
		slog.String("user_id", userID),
		slog.String("type", entity.Type.String()),
		slog.String("id", entity.ID),
		slog.Bool("created", created))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	sendJSON(h.logger, w, api.FromModel(entity), status)
}

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockledger/stockledger/internal/shared"
)

const idempotencyModule = "inventory"

// IdempotencyGuard claims batch submission keys so a replayed request is
// rejected instead of double-applied. Implemented by shared.IdempotencyStore.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler wires HTTP endpoints for the ledger engine.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	idempotency IdempotencyGuard
}

// NewHandler constructs the inventory handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		validator:   validator.New(),
		idempotency: idempotency,
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.List)
	r.Post("/inventory", h.AddBatch)
	r.Post("/inventory/deduct", h.DeductBatch)
	r.Get("/inventory/{id}", h.Show)
	r.Put("/inventory/{id}", h.Update)
	r.Delete("/inventory/{id}", h.Delete)
	r.Get("/inventory/units", h.Units)
}

// List enumerates items under the filter contract.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:    q.Get("search"),
		Unit:      q.Get("unit"),
		Status:    q.Get("status"),
		SortBy:    q.Get("sort"),
		Direction: q.Get("direction"),
	}
	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("list items failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"items":   toItemResponses(items),
		"filters": filter,
	})
}

// AddBatch applies an add batch atomically.
func (h *Handler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req addBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	key, ok := h.claimIdempotencyKey(w, r)
	if !ok {
		return
	}
	entries := make([]AddEntry, 0, len(req.Items))
	for _, item := range req.Items {
		entries = append(entries, AddEntry{
			Name:     item.Name,
			Unit:     item.Unit,
			Quantity: item.Quantity,
			Note:     item.Note,
		})
	}
	items, err := h.service.AddBatch(r.Context(), entries)
	if err != nil {
		h.releaseIdempotencyKey(r, key)
		h.writeServiceError(w, r, "add batch failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"items": toItemResponses(items)})
}

// DeductBatch applies a deduct batch atomically.
func (h *Handler) DeductBatch(w http.ResponseWriter, r *http.Request) {
	var req deductBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	key, ok := h.claimIdempotencyKey(w, r)
	if !ok {
		return
	}
	entries := make([]DeductEntry, 0, len(req.Deductions))
	for _, d := range req.Deductions {
		entries = append(entries, DeductEntry{
			ItemID:   d.ItemID,
			Quantity: d.Quantity,
			Note:     d.Note,
		})
	}
	items, err := h.service.DeductBatch(r.Context(), entries)
	if err != nil {
		h.releaseIdempotencyKey(r, key)
		h.writeServiceError(w, r, "deduct batch failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items)})
}

// Show returns one item snapshot.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get item failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

// Update replaces an item's attributes, logging any quantity change in the
// same unit of work.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, UpdateItemInput{
		Name:     req.Name,
		Unit:     req.Unit,
		Quantity: req.Quantity,
		Note:     req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, "update item failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

// Delete removes an item and its whole ledger history.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "delete item failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Units lists the fixed set of accepted units of measure.
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{"units": Units})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		shared.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}

func (h *Handler) claimIdempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idempotency == nil {
		return "", true
	}
	if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			shared.WriteError(w, http.StatusConflict, "batch already processed")
			return "", false
		}
		h.logger.Error("idempotency check failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "idempotency check failed")
		return "", false
	}
	return key, true
}

func (h *Handler) releaseIdempotencyKey(r *http.Request, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Delete(r.Context(), key); err != nil {
		h.logger.Warn("release idempotency key failed", slog.Any("error", err))
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var insufficient *InsufficientStockError
	var notFound *ItemNotFoundError
	switch {
	case errors.As(err, &insufficient):
		shared.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     "insufficient stock",
			"message":   insufficient.Error(),
			"item":      insufficient.ItemName,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.As(err, &notFound):
		shared.WriteError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, ErrDuplicateName):
		shared.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidUnit),
		errors.Is(err, ErrNoteTooLong),
		errors.Is(err, ErrEmptyBatch):
		shared.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
		shared.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

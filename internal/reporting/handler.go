package reporting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockledger/stockledger/internal/inventory"
	"github.com/stockledger/stockledger/internal/shared"
)

// Handler wires HTTP endpoints for the reporting module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reporting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/inventory/{id}/history", h.History)
	r.Get("/transactions", h.Recent)
	r.Get("/units", h.Units)
	r.Get("/reports/low-stock", h.LowStock)
	r.Get("/reports/out-of-stock", h.OutOfStock)
}

// Dashboard returns the aggregate inventory statistics.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

// History returns the full ledger of one item, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, history, err := h.service.ItemHistory(r.Context(), id)
	if err != nil {
		var notFound *inventory.ItemNotFoundError
		if errors.As(err, &notFound) {
			shared.WriteError(w, http.StatusNotFound, notFound.Error())
			return
		}
		h.logger.Error("item history failed", slog.Any("error", err), slog.Int64("item_id", id))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"item":         item,
		"status":       item.Status(),
		"transactions": history,
	})
}

// Recent lists the latest ledger entries across all items.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	transactions, err := h.service.RecentTransactions(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent transactions failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

// Units lists the distinct units currently in use.
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.UniqueUnits(r.Context())
	if err != nil {
		h.logger.Error("unique units failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load units")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"units": units})
}

// LowStock enumerates items below the low-stock threshold.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	h.itemsByStatus(w, r, h.service.LowStockItems)
}

// OutOfStock enumerates items with no remaining stock.
func (h *Handler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	h.itemsByStatus(w, r, h.service.OutOfStockItems)
}

func (h *Handler) itemsByStatus(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]inventory.Item, error)) {
	items, err := fetch(r.Context())
	if err != nil {
		h.logger.Error("items by status failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load items")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

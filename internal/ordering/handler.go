// internal/ordering/handler.go
package ordering

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"bookstore/internal/catalog"
)

type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerName string      `json:"customer_name"`
		Address      string      `json:"address"`
		Selections   []Selection `json:"selections"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	placement, err := h.service.PlaceOrder(r.Context(), req.CustomerName, req.Address, req.Selections)
	if errors.Is(err, ErrNoItems) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    err.Error(),
			"rejected": placement.Rejected,
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, placement)
}

func (h *Handler) HandleProcessNext(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.ProcessNextOrder(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListPending(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListProcessed(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListProcessed(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("ordering request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

// StatusFor maps ordering errors, and the catalog errors they can wrap, to
// HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoItems):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoPendingOrders):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNilBook):
		return http.StatusBadRequest
	default:
		return catalog.StatusFor(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

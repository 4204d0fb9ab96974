package handlers

import (
	"net/http"
	"strings"

	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

type OrderHandler struct {
	Store *store.Store
}

func NewOrderHandler(store *store.Store) *OrderHandler {
	return &OrderHandler{Store: store}
}

// Create mencatat permintaan pembelian buku baru dari anggota.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var req models.OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Title is required")
		return
	}

	order, err := h.Store.CreateOrder(r.Context(), claims.UserID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order)
}

// List returns the caller's own orders, or every order for staff.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	owner := claims.UserID
	if claims.Role.Can(models.CapViewAllOrders) {
		owner = ""
	}

	orders, err := h.Store.ListOrders(r.Context(), owner)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// UpdateStatus sets any of the four statuses; the order of transitions is
// not enforced.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status models.OrderStatus `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if !payload.Status.Valid() {
		utils.WriteError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	order, err := h.Store.UpdateOrderStatus(r.Context(), r.PathValue("id"), payload.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

package handlers

import (
	"net/http"

	"simpus/middleware"
	"simpus/store"
	"simpus/utils"
)

type AdminHandler struct {
	Store *store.Store
}

func NewAdminHandler(store *store.Store) *AdminHandler {
	return &AdminHandler{Store: store}
}

// GetUsers endpoint (admin).
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

// DeleteUser endpoint (admin). Admin tidak bisa menghapus akunnya sendiri.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if claims := middleware.ClaimsFrom(r.Context()); claims.UserID == id {
		utils.WriteError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// BlockUser endpoint (admin): PATCH /api/admin/users/{id}/block {blocked}.
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Blocked *bool `json:"blocked"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Blocked == nil {
		utils.WriteError(w, http.StatusBadRequest, "blocked is required")
		return
	}

	user, err := h.Store.SetUserBlocked(r.Context(), r.PathValue("id"), *payload.Blocked)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// Stats returns the dashboard counts.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.DashboardStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

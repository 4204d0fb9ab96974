package handlers

import (
	"net/http"

	"simpus/store"
	"simpus/utils"
)

type CategoryHandler struct {
	Store *store.Store
}

func NewCategoryHandler(store *store.Store) *CategoryHandler {
	return &CategoryHandler{Store: store}
}

// GetCategories endpoint.
// Mengambil daftar kategori yang dipakai oleh buku di katalog.
func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Store.Categories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cats)
}

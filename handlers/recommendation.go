package handlers

import (
	"net/http"

	"simpus/recommend"
	"simpus/store"
	"simpus/utils"
)

type RecommendationHandler struct {
	Store *store.Store
}

func NewRecommendationHandler(store *store.Store) *RecommendationHandler {
	return &RecommendationHandler{Store: store}
}

// Recommend scores the whole catalog against the questionnaire answers.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var prefs recommend.Preferences
	if !decodeJSON(w, r, &prefs) {
		return
	}

	ctx := r.Context()
	books, err := h.Store.AllBooks(ctx, "")
	if err != nil {
		writeStoreError(w, err)
		return
	}
	popular, err := h.Store.PopularBooks(ctx, 3)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	ratings, err := h.Store.RatingsForBooks(ctx)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"recommendations": recommend.Recommend(books, popular, ratings, prefs),
		"preferences":     prefs,
	})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

type ReviewHandler struct {
	Store *store.Store
}

func NewReviewHandler(store *store.Store) *ReviewHandler {
	return &ReviewHandler{Store: store}
}

// validateReview checks rating 1-5, title <= 100 and content <= 1000 characters.
func validateReview(req models.ReviewRequest) string {
	switch {
	case req.Rating < 1 || req.Rating > 5:
		return "Rating must be between 1 and 5"
	case strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "":
		return "Title and content are required"
	case utf8.RuneCountInString(req.Title) > 100:
		return "Title cannot exceed 100 characters"
	case utf8.RuneCountInString(req.Content) > 1000:
		return "Content cannot exceed 1000 characters"
	}
	return ""
}

// Create endpoint: satu ulasan per anggota per buku.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var req models.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BookID == "" {
		utils.WriteError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	if msg := validateReview(req); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	review, err := h.Store.CreateReview(r.Context(), claims.UserID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, review)
}

// ForBook returns the public reviews of {bookId}, newest first.
func (h *ReviewHandler) ForBook(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Store.ListBookReviews(r.Context(), r.PathValue("bookId"), page, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	reviews, err := h.Store.ListUserReviews(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reviews)
}

// Update hanya untuk pemilik ulasan.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var req models.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateReview(req); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	review, err := h.Store.UpdateReview(r.Context(), r.PathValue("reviewId"), claims.UserID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	if err := h.Store.DeleteReview(r.Context(), r.PathValue("reviewId"), claims.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Review deleted successfully"})
}

func (h *ReviewHandler) Helpful(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	helpful, count, err := h.Store.ToggleHelpful(r.Context(), r.PathValue("reviewId"), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"isHelpful": helpful, "helpfulCount": count})
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.RatingStats(r.Context(), r.PathValue("bookId"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

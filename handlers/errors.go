package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"simpus/store"
	"simpus/utils"
)

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{store.ErrUserExists, http.StatusConflict, "Email already registered"},
	{store.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{store.ErrBookNotFound, http.StatusNotFound, "Book not found"},
	{store.ErrNoCopiesAvailable, http.StatusBadRequest, "No copies available"},
	{store.ErrBorrowNotFound, http.StatusNotFound, "Transaction not found"},
	{store.ErrAlreadyReturned, http.StatusBadRequest, "Already returned"},
	{store.ErrNotActive, http.StatusBadRequest, "Not active"},
	{store.ErrDueDateOutOfRange, http.StatusBadRequest, "New due date is out of range"},
	{store.ErrConflict, http.StatusConflict, "Transaction was modified concurrently, please retry"},
	{store.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{store.ErrReviewNotFound, http.StatusNotFound, "Review not found"},
	{store.ErrReviewExists, http.StatusConflict, "You have already reviewed this book"},
	{store.ErrCommunityNotFound, http.StatusNotFound, "Community not found"},
	{store.ErrAlreadyMember, http.StatusConflict, "You are already a member of this community"},
	{store.ErrNotMember, http.StatusConflict, "You are not a member of this community"},
	{store.ErrCommunityFull, http.StatusBadRequest, "Community is full"},
	{store.ErrMessageNotFound, http.StatusNotFound, "Message not found"},
	{store.ErrNotificationNotFound, http.StatusNotFound, "Notification not found"},
	{utils.ErrUnsupportedFile, http.StatusBadRequest, "Only image uploads are allowed"},
}

// writeStoreError memetakan error dari store ke status HTTP. Error yang tidak
// dikenal dicatat dan dijawab 500.
func writeStoreError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			utils.WriteError(w, e.status, e.message)
			return
		}
	}
	log.Println("Server error:", err)
	utils.WriteError(w, http.StatusInternalServerError, "Server error")
}

// decodeJSON decodes the request body into v and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

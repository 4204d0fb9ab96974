package handlers

import (
	"fmt"
	"log"
	"net/http"

	"simpus/config"
	"simpus/middleware"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

const dateLayout = "02 Jan 2006"

// maxExtendDays membatasi satu kali perpanjangan (sekitar 10 tahun).
const maxExtendDays = 3650

type BorrowHandler struct {
	Store *store.Store
	Hub   *utils.Hub
	Cfg   config.Config
}

func NewBorrowHandler(store *store.Store, hub *utils.Hub, cfg config.Config) *BorrowHandler {
	return &BorrowHandler{Store: store, Hub: hub, Cfg: cfg}
}

// Borrow endpoint: POST /api/borrow/borrow/{bookId} (multipart, "photo" opsional).
func (h *BorrowHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	photo, ok := h.photo(w, r, "borrows")
	if !ok {
		return
	}

	t, err := h.Store.BorrowBook(r.Context(), r.PathValue("bookId"), claims.UserID, h.Cfg.LoanDays, photo)
	if err != nil {
		h.discard(photo)
		writeStoreError(w, err)
		return
	}

	notify(r.Context(), h.Store, h.Hub, t.UserID,
		fmt.Sprintf("Peminjaman berhasil: %s. Batas waktu: %s", bookTitle(t), t.DueAt.Format(dateLayout)))

	utils.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "dueAt": t.DueAt})
}

// Return endpoint: POST /api/borrow/return/{transactionId}.
// Anggota hanya boleh mengembalikan pinjamannya sendiri.
func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedBorrow(w, r)
	if !ok {
		return
	}

	photo, ok := h.photo(w, r, "returns")
	if !ok {
		return
	}

	t, err := h.Store.ReturnBorrow(r.Context(), t.ID, photo)
	if err != nil {
		h.discard(photo)
		writeStoreError(w, err)
		return
	}

	msg := fmt.Sprintf("Pengembalian berhasil: %s.", bookTitle(t))
	if t.Status == models.StatusOverdue {
		msg = fmt.Sprintf("Pengembalian terlambat: %s (jatuh tempo %s).", bookTitle(t), t.DueAt.Format(dateLayout))
	}
	notify(r.Context(), h.Store, h.Hub, t.UserID, msg)

	utils.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "transaction": t.At(h.Store.Now())})
}

// Extend endpoint: POST /api/borrow/extend/{transactionId} {days, reason}.
// Batas waktu baru dihitung dari dueAt sebelumnya, bukan dari sekarang.
func (h *BorrowHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var req models.ExtendRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	days := h.Cfg.ExtendDays
	if req.Days != nil {
		days = *req.Days
	}
	if days < 1 || days > maxExtendDays {
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxExtendDays))
		return
	}

	t, ok := h.ownedBorrow(w, r)
	if !ok {
		return
	}

	t, err := h.Store.ExtendBorrow(r.Context(), t.ID, days, req.Reason)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	notify(r.Context(), h.Store, h.Hub, t.UserID,
		fmt.Sprintf("Perpanjangan berhasil: %s. Batas waktu baru: %s", bookTitle(t), t.DueAt.Format(dateLayout)))

	utils.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "newDueAt": t.DueAt})
}

// My returns the caller's loans, newest first, each with its book.
func (h *BorrowHandler) My(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	loans, err := h.Store.ListBorrowsByUser(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.at(loans))
}

func (h *BorrowHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedBorrow(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, t.At(h.Store.Now()))
}

// All is the staff view of every loan, newest first.
func (h *BorrowHandler) All(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Store.ListAllBorrows(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.at(loans))
}

// ownedBorrow loads {transactionId} and checks the caller may act on it.
func (h *BorrowHandler) ownedBorrow(w http.ResponseWriter, r *http.Request) (*models.BorrowTransaction, bool) {
	claims := middleware.ClaimsFrom(r.Context())

	t, err := h.Store.GetBorrow(r.Context(), r.PathValue("transactionId"))
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if t.UserID != claims.UserID && !claims.Role.Can(models.CapActOnAnyLoan) {
		utils.WriteError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return t, true
}

// photo stores the optional "photo" file of a multipart request.
func (h *BorrowHandler) photo(w http.ResponseWriter, r *http.Request, sub string) (string, bool) {
	if !isMultipart(r) {
		return "", true
	}
	if err := r.ParseMultipartForm(utils.MaxUploadSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form")
		return "", false
	}
	url, err := utils.SaveUpload(r, "photo", h.Cfg.UploadDir, sub)
	if err != nil {
		writeStoreError(w, err)
		return "", false
	}
	return url, true
}

// discard menghapus foto yang sudah tersimpan saat transaksi gagal.
func (h *BorrowHandler) discard(url string) {
	if err := utils.RemoveUpload(h.Cfg.UploadDir, url); err != nil {
		log.Println("remove upload:", err)
	}
}

func (h *BorrowHandler) at(loans []models.BorrowTransaction) []models.BorrowTransaction {
	now := h.Store.Now()
	out := make([]models.BorrowTransaction, len(loans))
	for i, t := range loans {
		out[i] = t.At(now)
	}
	return out
}

func bookTitle(t *models.BorrowTransaction) string {
	if t.Book != nil && t.Book.Title != "" {
		return t.Book.Title
	}
	return "Buku"
}

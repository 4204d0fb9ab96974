package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"simpus/config"
	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

type BookHandler struct {
	Store *store.Store
	Cfg   config.Config
}

func NewBookHandler(store *store.Store, cfg config.Config) *BookHandler {
	return &BookHandler{Store: store, Cfg: cfg}
}

// ListBooks endpoint: GET /api/books?q=&category=&author=&sort=&order=&page=&limit=
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.Store.ListBooks(r.Context(), models.BookFilter{
		Q:        q.Get("q"),
		Category: q.Get("category"),
		Author:   q.Get("author"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.GetBookByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, book)
}

// Popular mengembalikan 10 buku yang paling sering dipinjam.
func (h *BookHandler) Popular(w http.ResponseWriter, r *http.Request) {
	books, err := h.Store.PopularBooks(r.Context(), 10)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	utils.WriteJSON(w, http.StatusOK, books)
}

func (h *BookHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.BookStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

// CreateBook endpoint (staf). Menerima JSON atau multipart dengan file "cover".
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req models.BookRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(utils.MaxUploadSize); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Error parsing form")
			return
		}
		u, ok := bookUpdateFromForm(w, r)
		if !ok {
			return
		}
		req = bookRequestFrom(u)
		cover, err := utils.SaveUpload(r, "cover", h.Cfg.UploadDir, "books")
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if cover != "" {
			req.CoverURL = cover
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Title and author are required")
		return
	}
	if req.TotalCopies < 0 {
		utils.WriteError(w, http.StatusBadRequest, "totalCopies must be >= 0")
		return
	}

	book, err := h.Store.CreateBook(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, book)
}

// UpdateBook endpoint (staf). Hanya field yang dikirim yang diubah.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var u models.BookUpdate
	if isMultipart(r) {
		if err := r.ParseMultipartForm(utils.MaxUploadSize); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Error parsing form")
			return
		}
		var ok bool
		if u, ok = bookUpdateFromForm(w, r); !ok {
			return
		}
		cover, err := utils.SaveUpload(r, "cover", h.Cfg.UploadDir, "books")
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if cover != "" {
			u.CoverURL = &cover
		}
	} else if !decodeJSON(w, r, &u) {
		return
	}

	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Title cannot be empty")
		return
	}
	if u.TotalCopies != nil && *u.TotalCopies < 0 {
		utils.WriteError(w, http.StatusBadRequest, "totalCopies must be >= 0")
		return
	}

	book, err := h.Store.UpdateBook(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteBook(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// bookUpdateFromForm reads the book fields present in a parsed multipart form.
func bookUpdateFromForm(w http.ResponseWriter, r *http.Request) (models.BookUpdate, bool) {
	var u models.BookUpdate
	field := func(name string) *string {
		if _, ok := r.MultipartForm.Value[name]; !ok {
			return nil
		}
		v := r.FormValue(name)
		return &v
	}
	u.Title = field("title")
	u.Author = field("author")
	u.ISBN = field("isbn")
	u.Category = field("category")
	u.CoverURL = field("coverUrl")
	u.LocationCode = field("locationCode")
	if v := field("totalCopies"); v != nil {
		n, err := strconv.Atoi(*v)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "totalCopies must be a number")
			return u, false
		}
		u.TotalCopies = &n
	}
	return u, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func bookRequestFrom(u models.BookUpdate) models.BookRequest {
	req := models.BookRequest{
		Title:        deref(u.Title),
		Author:       deref(u.Author),
		ISBN:         deref(u.ISBN),
		Category:     deref(u.Category),
		CoverURL:     deref(u.CoverURL),
		LocationCode: deref(u.LocationCode),
		TotalCopies:  1,
	}
	if u.TotalCopies != nil {
		req.TotalCopies = *u.TotalCopies
	}
	return req
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// BOOKS
// ==========================================

const bookColumns = "id, title, author, isbn, category, cover_url, total_copies, borrowed_count, location_code, created_at, updated_at"

// bookSortColumns whitelists the sort keys accepted from clients.
var bookSortColumns = map[string]string{
	"createdAt":     "created_at",
	"title":         "title",
	"author":        "author",
	"category":      "category",
	"totalCopies":   "total_copies",
	"borrowedCount": "borrowed_count",
}

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var b models.Book
	var isbn, category, coverURL, location sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &isbn, &category, &coverURL,
		&b.TotalCopies, &b.BorrowedCount, &location, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ISBN = isbn.String
	b.Category = category.String
	b.CoverURL = coverURL.String
	b.LocationCode = location.String
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func scanBooks(rows *sql.Rows) ([]models.Book, error) {
	defer rows.Close()
	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// ListBooks returns one page of the catalog matching f together with the
// total number of matches.
func (s *Store) ListBooks(ctx context.Context, f models.BookFilter) (*models.BookPage, error) {
	var where []string
	var args []any
	if q := strings.TrimSpace(f.Q); q != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, likePattern(q))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Author != "" {
		where = append(where, "author = ?")
		args = append(args, f.Author)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := bookSortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	page, limit, offset := pageBounds(f.Page, f.Limit, 20)

	var total int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM books"+clause, args...).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		"SELECT "+bookColumns+" FROM books"+clause+" ORDER BY "+col+" "+dir+", id ASC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	items, err := scanBooks(rows)
	if err != nil {
		return nil, err
	}

	return &models.BookPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Store) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	return getBook(ctx, s.handle, id)
}

func getBook(ctx context.Context, h handle, id string) (*models.Book, error) {
	b, err := scanBook(h.queryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return b, err
}

func (s *Store) CreateBook(ctx context.Context, req models.BookRequest) (*models.Book, error) {
	now := s.now()
	b := &models.Book{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Author:       strings.TrimSpace(req.Author),
		ISBN:         strings.TrimSpace(req.ISBN),
		Category:     strings.TrimSpace(req.Category),
		CoverURL:     req.CoverURL,
		TotalCopies:  req.TotalCopies,
		LocationCode: strings.TrimSpace(req.LocationCode),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.exec(ctx,
		"INSERT INTO books ("+bookColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.Title, b.Author, nullString(b.ISBN), nullString(b.Category), nullString(b.CoverURL),
		b.TotalCopies, 0, nullString(b.LocationCode), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return b, nil
}

// UpdateBook applies the non-nil fields of u. borrowedCount is never touched
// here; only the borrow workflow moves it.
func (s *Store) UpdateBook(ctx context.Context, id string, u models.BookUpdate) (*models.Book, error) {
	var book *models.Book
	err := s.withTx(ctx, func(h handle) error {
		b, err := getBook(ctx, h, id)
		if err != nil {
			return err
		}
		if u.Title != nil {
			b.Title = strings.TrimSpace(*u.Title)
		}
		if u.Author != nil {
			b.Author = strings.TrimSpace(*u.Author)
		}
		if u.ISBN != nil {
			b.ISBN = strings.TrimSpace(*u.ISBN)
		}
		if u.Category != nil {
			b.Category = strings.TrimSpace(*u.Category)
		}
		if u.CoverURL != nil {
			b.CoverURL = *u.CoverURL
		}
		if u.TotalCopies != nil {
			b.TotalCopies = *u.TotalCopies
		}
		if u.LocationCode != nil {
			b.LocationCode = strings.TrimSpace(*u.LocationCode)
		}
		b.UpdatedAt = s.now()

		_, err = h.exec(ctx,
			"UPDATE books SET title=?, author=?, isbn=?, category=?, cover_url=?, total_copies=?, location_code=?, updated_at=? WHERE id=?",
			b.Title, b.Author, nullString(b.ISBN), nullString(b.Category), nullString(b.CoverURL),
			b.TotalCopies, nullString(b.LocationCode), b.UpdatedAt, b.ID)
		if err != nil {
			return err
		}
		book = b
		return nil
	})
	return book, err
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM books WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// PopularBooks returns the limit most borrowed titles.
func (s *Store) PopularBooks(ctx context.Context, limit int) ([]models.Book, error) {
	rows, err := s.query(ctx, "SELECT "+bookColumns+" FROM books ORDER BY borrowed_count DESC, title ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

// AllBooks returns the whole catalog; the recommender scores it in memory.
func (s *Store) AllBooks(ctx context.Context, category string) ([]models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books"
	var args []any
	if category != "" {
		query += " WHERE LOWER(category) LIKE ?"
		args = append(args, likePattern(category))
	}
	rows, err := s.query(ctx, query+" ORDER BY title", args...)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

// BookStats counts titles and the sum of per-book available copies.
func (s *Store) BookStats(ctx context.Context) (*models.BookStats, error) {
	var st models.BookStats
	var available sql.NullInt64
	err := s.queryRow(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN total_copies > borrowed_count THEN total_copies - borrowed_count ELSE 0 END)
		FROM books`).Scan(&st.TotalBooks, &available)
	if err != nil {
		return nil, err
	}
	st.AvailableBooks = int(available.Int64)
	return &st, nil
}

// Categories returns the distinct, non-empty categories in the catalog.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, "SELECT DISTINCT category FROM books WHERE category IS NOT NULL AND category <> '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// BORROW TRANSACTIONS
// ==========================================

const borrowColumns = "t.id, t.user_id, t.book_id, t.status, t.borrowed_at, t.due_at, t.returned_at, t.borrow_photo_url, t.return_photo_url, t.notes, t.version"

func scanBorrow(row interface{ Scan(...any) error }, extra ...any) (*models.BorrowTransaction, error) {
	var t models.BorrowTransaction
	var status string
	var returnedAt sql.NullTime
	var borrowPhoto, returnPhoto, notes sql.NullString
	dest := []any{&t.ID, &t.UserID, &t.BookID, &status, &t.BorrowedAt, &t.DueAt, &returnedAt,
		&borrowPhoto, &returnPhoto, &notes, &t.Version}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.Status = models.BorrowStatus(status)
	t.BorrowedAt = t.BorrowedAt.UTC()
	t.DueAt = t.DueAt.UTC()
	t.ReturnedAt = utcPtr(returnedAt)
	t.BorrowPhotoURL = borrowPhoto.String
	t.ReturnPhotoURL = returnPhoto.String
	t.Notes = notes.String
	return &t, nil
}

// BorrowBook lends one copy of bookID to userID. The availability check and
// the counter increment are a single conditional UPDATE, and the loan row is
// written in the same transaction, so concurrent borrows can never take more
// copies than exist.
func (s *Store) BorrowBook(ctx context.Context, bookID, userID string, loanDays int, photoURL string) (*models.BorrowTransaction, error) {
	now := s.now()
	t := &models.BorrowTransaction{
		ID:             uuid.NewString(),
		UserID:         userID,
		BookID:         bookID,
		Status:         models.StatusBorrowed,
		BorrowedAt:     now,
		DueAt:          now.AddDate(0, 0, loanDays),
		BorrowPhotoURL: photoURL,
		Version:        1,
	}

	err := s.withTx(ctx, func(h handle) error {
		res, err := h.exec(ctx,
			"UPDATE books SET borrowed_count = borrowed_count + 1, updated_at = ? WHERE id = ? AND total_copies - borrowed_count > 0",
			now, bookID)
		if err != nil {
			return fmt.Errorf("reserve copy: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := getBook(ctx, h, bookID); err != nil {
				return err
			}
			return ErrNoCopiesAvailable
		}

		_, err = h.exec(ctx, `
			INSERT INTO borrow_transactions
				(id, user_id, book_id, status, borrowed_at, due_at, borrow_photo_url, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.BookID, string(t.Status), t.BorrowedAt, t.DueAt, nullString(photoURL), t.Version)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		t.Book, err = getBook(ctx, h, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetBorrow loads one transaction with its book and extension history.
func (s *Store) GetBorrow(ctx context.Context, id string) (*models.BorrowTransaction, error) {
	return getBorrow(ctx, s.handle, id)
}

func getBorrow(ctx context.Context, h handle, id string) (*models.BorrowTransaction, error) {
	t, err := scanBorrow(h.queryRow(ctx, "SELECT "+borrowColumns+" FROM borrow_transactions t WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBorrowNotFound
	}
	if err != nil {
		return nil, err
	}

	ext, err := listExtensions(ctx, h, "WHERE e.transaction_id = ?", id)
	if err != nil {
		return nil, err
	}
	for _, e := range ext {
		t.Extensions = append(t.Extensions, e.Extension)
	}

	book, err := getBook(ctx, h, t.BookID)
	switch {
	case err == nil:
		t.Book = book
	case !errors.Is(err, ErrBookNotFound):
		return nil, err
	}
	return t, nil
}

// ReturnBorrow closes an outstanding loan. The status flip is conditional on
// the loan still being borrowed, so a repeated return fails with
// ErrAlreadyReturned and never releases a second copy.
func (s *Store) ReturnBorrow(ctx context.Context, id, photoURL string) (*models.BorrowTransaction, error) {
	now := s.now()
	var out *models.BorrowTransaction

	err := s.withTx(ctx, func(h handle) error {
		t, err := getBorrow(ctx, h, id)
		if err != nil {
			return err
		}
		if !t.Active() {
			return ErrAlreadyReturned
		}

		status := models.StatusReturned
		if now.After(t.DueAt) {
			status = models.StatusOverdue
		}
		if photoURL == "" {
			photoURL = t.ReturnPhotoURL
		}

		res, err := h.exec(ctx, `
			UPDATE borrow_transactions
			SET status = ?, returned_at = ?, return_photo_url = ?, version = version + 1
			WHERE id = ? AND status = ?`,
			string(status), now, nullString(photoURL), id, string(models.StatusBorrowed))
		if err != nil {
			return fmt.Errorf("close transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyReturned
		}

		_, err = h.exec(ctx, `
			UPDATE books
			SET borrowed_count = CASE WHEN borrowed_count > 0 THEN borrowed_count - 1 ELSE 0 END, updated_at = ?
			WHERE id = ?`, now, t.BookID)
		if err != nil {
			return fmt.Errorf("release copy: %w", err)
		}

		t.Status = status
		t.ReturnedAt = &now
		t.ReturnPhotoURL = photoURL
		t.Version++
		if t.Book != nil {
			t.Book, err = getBook(ctx, h, t.BookID)
			if err != nil && !errors.Is(err, ErrBookNotFound) {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtendBorrow moves the due date of an outstanding loan forward by days,
// counted from the current due date, and appends an extension record.
func (s *Store) ExtendBorrow(ctx context.Context, id string, days int, reason string) (*models.BorrowTransaction, error) {
	now := s.now()
	var out *models.BorrowTransaction

	err := s.withTx(ctx, func(h handle) error {
		t, err := getBorrow(ctx, h, id)
		if err != nil {
			return err
		}
		if !t.Active() {
			return ErrNotActive
		}

		newDue := t.DueAt.AddDate(0, 0, days)
		// RFC 3339 only encodes years 0000-9999
		if days < 1 || newDue.Year() > 9999 {
			return ErrDueDateOutOfRange
		}
		res, err := h.exec(ctx, `
			UPDATE borrow_transactions
			SET due_at = ?, version = version + 1
			WHERE id = ? AND status = ? AND version = ?`,
			newDue, id, string(models.StatusBorrowed), t.Version)
		if err != nil {
			return fmt.Errorf("extend transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}

		ext := models.Extension{ID: uuid.NewString(), ExtendedAt: now, NewDueAt: newDue, Reason: reason}
		_, err = h.exec(ctx,
			"INSERT INTO borrow_extensions (id, transaction_id, extended_at, new_due_at, reason) VALUES (?, ?, ?, ?, ?)",
			ext.ID, id, ext.ExtendedAt, ext.NewDueAt, nullString(reason))
		if err != nil {
			return fmt.Errorf("insert extension: %w", err)
		}

		t.DueAt = newDue
		t.Version++
		t.Extensions = append(t.Extensions, ext)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListBorrowsByUser returns every loan of userID with its book, newest first.
func (s *Store) ListBorrowsByUser(ctx context.Context, userID string) ([]models.BorrowTransaction, error) {
	rows, err := s.query(ctx, `
		SELECT `+borrowColumns+`, b.title, b.author, b.isbn, b.category, b.cover_url,
		       b.total_copies, b.borrowed_count, b.location_code, b.created_at, b.updated_at
		FROM borrow_transactions t
		LEFT JOIN books b ON b.id = t.book_id
		WHERE t.user_id = ?
		ORDER BY t.borrowed_at DESC, t.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []models.BorrowTransaction{}
	for rows.Next() {
		var title, author, isbn, category, cover, location sql.NullString
		var total, borrowed sql.NullInt64
		var created, updated sql.NullTime
		t, err := scanBorrow(rows, &title, &author, &isbn, &category, &cover, &total, &borrowed, &location, &created, &updated)
		if err != nil {
			return nil, err
		}
		if title.Valid {
			t.Book = &models.Book{
				ID: t.BookID, Title: title.String, Author: author.String, ISBN: isbn.String,
				Category: category.String, CoverURL: cover.String, TotalCopies: int(total.Int64),
				BorrowedCount: int(borrowed.Int64), LocationCode: location.String,
				CreatedAt: created.Time.UTC(), UpdatedAt: updated.Time.UTC(),
			}
		}
		loans = append(loans, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ext, err := listExtensions(ctx, s.handle,
		"JOIN borrow_transactions t ON t.id = e.transaction_id WHERE t.user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	attachExtensions(loans, ext)
	return loans, nil
}

// ListAllBorrows returns every loan with borrower name/email and book
// title/author, newest first.
func (s *Store) ListAllBorrows(ctx context.Context) ([]models.BorrowTransaction, error) {
	rows, err := s.query(ctx, `
		SELECT `+borrowColumns+`, u.name, u.email, b.title, b.author
		FROM borrow_transactions t
		LEFT JOIN users u ON u.id = t.user_id
		LEFT JOIN books b ON b.id = t.book_id
		ORDER BY t.borrowed_at DESC, t.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []models.BorrowTransaction{}
	for rows.Next() {
		var name, email, title, author sql.NullString
		t, err := scanBorrow(rows, &name, &email, &title, &author)
		if err != nil {
			return nil, err
		}
		if name.Valid {
			t.User = &models.UserRef{ID: t.UserID, Name: name.String, Email: email.String}
		}
		if title.Valid {
			t.Book = &models.Book{ID: t.BookID, Title: title.String, Author: author.String}
		}
		loans = append(loans, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ext, err := listExtensions(ctx, s.handle, "")
	if err != nil {
		return nil, err
	}
	attachExtensions(loans, ext)
	return loans, nil
}

// ListActiveBorrows returns loans still out, oldest due date first, with the
// book title filled in. Used by the reminder worker.
func (s *Store) ListActiveBorrows(ctx context.Context) ([]models.BorrowTransaction, error) {
	rows, err := s.query(ctx, `
		SELECT `+borrowColumns+`, b.title
		FROM borrow_transactions t
		LEFT JOIN books b ON b.id = t.book_id
		WHERE t.status = ?
		ORDER BY t.due_at ASC`, string(models.StatusBorrowed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []models.BorrowTransaction
	for rows.Next() {
		var title sql.NullString
		t, err := scanBorrow(rows, &title)
		if err != nil {
			return nil, err
		}
		if title.Valid {
			t.Book = &models.Book{ID: t.BookID, Title: title.String}
		}
		loans = append(loans, *t)
	}
	return loans, rows.Err()
}

// CountActiveBorrows returns the number of outstanding loans and how many of
// them are past due at now.
func (s *Store) CountActiveBorrows(ctx context.Context, now time.Time) (active, overdue int, err error) {
	err = s.queryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN due_at < ? THEN 1 ELSE 0 END), 0)
		FROM borrow_transactions WHERE status = ?`,
		now.UTC(), string(models.StatusBorrowed)).Scan(&active, &overdue)
	return active, overdue, err
}

// listExtensions loads extension rows; tail is appended after "FROM
// borrow_extensions e" and may join or filter.
func listExtensions(ctx context.Context, h handle, tail string, args ...any) ([]extensionRow, error) {
	rows, err := h.query(ctx, `
		SELECT e.id, e.transaction_id, e.extended_at, e.new_due_at, e.reason
		FROM borrow_extensions e `+tail+`
		ORDER BY e.extended_at ASC, e.new_due_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []extensionRow
	for rows.Next() {
		var r extensionRow
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.txID, &r.ExtendedAt, &r.NewDueAt, &reason); err != nil {
			return nil, err
		}
		r.ExtendedAt = r.ExtendedAt.UTC()
		r.NewDueAt = r.NewDueAt.UTC()
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

type extensionRow struct {
	models.Extension
	txID string
}

func attachExtensions(loans []models.BorrowTransaction, ext []extensionRow) {
	byTx := make(map[string][]models.Extension, len(ext))
	for _, e := range ext {
		byTx[e.txID] = append(byTx[e.txID], e.Extension)
	}
	for i := range loans {
		loans[i].Extensions = byTx[loans[i].ID]
	}
}

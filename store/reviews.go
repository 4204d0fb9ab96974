package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// REVIEWS
// ==========================================

const reviewColumns = `r.id, r.user_id, r.book_id, r.rating, r.title, r.content, r.is_public, r.is_edited,
	r.created_at, r.updated_at, (SELECT COUNT(*) FROM review_helpful h WHERE h.review_id = r.id)`

func scanReview(row interface{ Scan(...any) error }, extra ...any) (*models.Review, error) {
	var r models.Review
	dest := []any{&r.ID, &r.UserID, &r.BookID, &r.Rating, &r.Title, &r.Content, &r.IsPublic, &r.IsEdited,
		&r.CreatedAt, &r.UpdatedAt, &r.HelpfulCount}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// CreateReview adds userID's review of req.BookID. A second review of the
// same book by the same user fails with ErrReviewExists.
func (s *Store) CreateReview(ctx context.Context, userID string, req models.ReviewRequest) (*models.Review, error) {
	if _, err := s.GetBookByID(ctx, req.BookID); err != nil {
		return nil, err
	}

	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM reviews WHERE user_id = ? AND book_id = ?", userID, req.BookID).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrReviewExists
	}

	now := s.now()
	r := &models.Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		BookID:    req.BookID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		IsPublic:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.exec(ctx, `
		INSERT INTO reviews (id, user_id, book_id, rating, title, content, is_public, is_edited, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.BookID, r.Rating, r.Title, r.Content, r.IsPublic, false, r.CreatedAt, r.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrReviewExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return s.GetReview(ctx, r.ID)
}

// GetReview loads a review with its author.
func (s *Store) GetReview(ctx context.Context, id string) (*models.Review, error) {
	var name sql.NullString
	r, err := scanReview(s.queryRow(ctx,
		"SELECT "+reviewColumns+", u.name FROM reviews r LEFT JOIN users u ON u.id = r.user_id WHERE r.id = ?", id),
		&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		r.User = &models.UserRef{ID: r.UserID, Name: name.String}
	}
	return r, nil
}

// ListBookReviews returns a page of the public reviews of bookID, newest first.
func (s *Store) ListBookReviews(ctx context.Context, bookID string, page, limit int) (*models.ReviewPage, error) {
	page, limit, offset := pageBounds(page, limit, 10)

	var total int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM reviews WHERE book_id = ? AND is_public = ?", bookID, true).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `
		SELECT `+reviewColumns+`, u.name
		FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ? AND r.is_public = ?
		ORDER BY r.created_at DESC, r.id ASC
		LIMIT ? OFFSET ?`, bookID, true, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var name sql.NullString
		r, err := scanReview(rows, &name)
		if err != nil {
			return nil, err
		}
		if name.Valid {
			r.User = &models.UserRef{ID: r.UserID, Name: name.String}
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &models.ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit}, nil
}

// ListUserReviews returns every review written by userID with the reviewed book.
func (s *Store) ListUserReviews(ctx context.Context, userID string) ([]models.Review, error) {
	rows, err := s.query(ctx, `
		SELECT `+reviewColumns+`, b.title, b.author, b.cover_url
		FROM reviews r LEFT JOIN books b ON b.id = r.book_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var title, author, cover sql.NullString
		r, err := scanReview(rows, &title, &author, &cover)
		if err != nil {
			return nil, err
		}
		if title.Valid {
			r.Book = &models.Book{ID: r.BookID, Title: title.String, Author: author.String, CoverURL: cover.String}
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

// UpdateReview rewrites a review owned by userID. Reviews of other users are
// reported as not found.
func (s *Store) UpdateReview(ctx context.Context, id, userID string, req models.ReviewRequest) (*models.Review, error) {
	res, err := s.exec(ctx, `
		UPDATE reviews SET rating = ?, title = ?, content = ?, is_edited = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		req.Rating, strings.TrimSpace(req.Title), strings.TrimSpace(req.Content), true, s.now(), id, userID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrReviewNotFound
	}
	return s.GetReview(ctx, id)
}

func (s *Store) DeleteReview(ctx context.Context, id, userID string) error {
	return s.withTx(ctx, func(h handle) error {
		res, err := h.exec(ctx, "DELETE FROM reviews WHERE id = ? AND user_id = ?", id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrReviewNotFound
		}
		_, err = h.exec(ctx, "DELETE FROM review_helpful WHERE review_id = ?", id)
		return err
	})
}

// ToggleHelpful flips userID's "helpful" mark on a review and returns the new
// state and count.
func (s *Store) ToggleHelpful(ctx context.Context, reviewID, userID string) (bool, int, error) {
	var helpful bool
	var count int
	err := s.withTx(ctx, func(h handle) error {
		var exists int
		if err := h.queryRow(ctx, "SELECT COUNT(*) FROM reviews WHERE id = ?", reviewID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrReviewNotFound
		}

		res, err := h.exec(ctx, "DELETE FROM review_helpful WHERE review_id = ? AND user_id = ?", reviewID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := h.exec(ctx, "INSERT INTO review_helpful (review_id, user_id) VALUES (?, ?)", reviewID, userID); err != nil {
				return err
			}
			helpful = true
		}
		return h.queryRow(ctx, "SELECT COUNT(*) FROM review_helpful WHERE review_id = ?", reviewID).Scan(&count)
	})
	return helpful, count, err
}

// RatingStats summarises the public ratings of bookID. The average is
// rounded to one decimal.
func (s *Store) RatingStats(ctx context.Context, bookID string) (*models.RatingStats, error) {
	rows, err := s.query(ctx,
		"SELECT rating, COUNT(*) FROM reviews WHERE book_id = ? AND is_public = ? GROUP BY rating", bookID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &models.RatingStats{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, err
		}
		st.RatingDistribution[rating] += n
		st.TotalReviews += n
		sum += rating * n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if st.TotalReviews > 0 {
		st.AverageRating = math.Round(float64(sum)/float64(st.TotalReviews)*10) / 10
	}
	return st, nil
}

// RatingsForBooks returns the public rating summary of every reviewed book.
func (s *Store) RatingsForBooks(ctx context.Context) (map[string]models.BookRating, error) {
	rows, err := s.query(ctx,
		"SELECT book_id, SUM(rating), COUNT(*) FROM reviews WHERE is_public = ? GROUP BY book_id", true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.BookRating{}
	for rows.Next() {
		var bookID string
		var sum, n int
		if err := rows.Scan(&bookID, &sum, &n); err != nil {
			return nil, err
		}
		if n > 0 {
			out[bookID] = models.BookRating{Average: float64(sum) / float64(n), Count: n}
		}
	}
	return out, rows.Err()
}

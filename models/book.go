package models

import (
	"encoding/json"
	"time"
)

type Book struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	ISBN          string    `json:"isbn" db:"isbn"`
	Category      string    `json:"category" db:"category"`
	CoverURL      string    `json:"coverUrl" db:"cover_url"`
	TotalCopies   int       `json:"totalCopies" db:"total_copies"`
	BorrowedCount int       `json:"borrowedCount" db:"borrowed_count"`
	LocationCode  string    `json:"locationCode" db:"location_code"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// AvailableCopies is totalCopies minus borrowedCount, never below zero.
func (b Book) AvailableCopies() int {
	if n := b.TotalCopies - b.BorrowedCount; n > 0 {
		return n
	}
	return 0
}

func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	return json.Marshal(struct {
		plain
		AvailableCopies int `json:"availableCopies"`
	}{plain(b), b.AvailableCopies()})
}

// BookRequest adalah payload untuk membuat buku baru.
type BookRequest struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	ISBN         string `json:"isbn"`
	Category     string `json:"category"`
	CoverURL     string `json:"coverUrl"`
	TotalCopies  int    `json:"totalCopies"`
	LocationCode string `json:"locationCode"`
}

// BookUpdate only touches the fields that are non-nil.
type BookUpdate struct {
	Title        *string `json:"title"`
	Author       *string `json:"author"`
	ISBN         *string `json:"isbn"`
	Category     *string `json:"category"`
	CoverURL     *string `json:"coverUrl"`
	TotalCopies  *int    `json:"totalCopies"`
	LocationCode *string `json:"locationCode"`
}

// BookFilter describes a catalog listing query.
type BookFilter struct {
	Q        string
	Category string
	Author   string
	Sort     string
	Order    string
	Page     int
	Limit    int
}

type BookPage struct {
	Items []Book `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// BookStats are the catalog totals used by the dashboard tiles.
type BookStats struct {
	TotalBooks     int `json:"totalBooks"`
	AvailableBooks int `json:"availableBooks"`
}

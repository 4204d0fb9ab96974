package models

import "time"

type Review struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	BookID       string    `json:"bookId" db:"book_id"`
	User         *UserRef  `json:"user,omitempty"`
	Book         *Book     `json:"book,omitempty"`
	Rating       int       `json:"rating" db:"rating"`
	Title        string    `json:"title" db:"title"`
	Content      string    `json:"content" db:"content"`
	IsPublic     bool      `json:"isPublic" db:"is_public"`
	HelpfulCount int       `json:"helpfulCount"`
	IsEdited     bool      `json:"isEdited" db:"is_edited"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type ReviewRequest struct {
	BookID  string `json:"bookId"`
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ReviewPage struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// RatingStats ringkasan rating publik sebuah buku.
type RatingStats struct {
	AverageRating      float64     `json:"averageRating"`
	TotalReviews       int         `json:"totalReviews"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

// BookRating is the average rating and review count of one book.
type BookRating struct {
	Average float64
	Count   int
}

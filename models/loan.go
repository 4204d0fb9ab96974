package models

import (
	"encoding/json"
	"time"
)

type BorrowStatus string

const (
	StatusBorrowed BorrowStatus = "borrowed"
	StatusReturned BorrowStatus = "returned"
	StatusOverdue  BorrowStatus = "overdue"
)

// BorrowTransaction merepresentasikan satu peminjaman satu eksemplar buku.
type BorrowTransaction struct {
	ID             string       `json:"id" db:"id"`
	UserID         string       `json:"userId" db:"user_id"`
	BookID         string       `json:"bookId" db:"book_id"`
	User           *UserRef     `json:"user,omitempty"`
	Book           *Book        `json:"book,omitempty"`
	Status         BorrowStatus `json:"status" db:"status"`
	BorrowedAt     time.Time    `json:"borrowedAt" db:"borrowed_at"`
	DueAt          time.Time    `json:"dueAt" db:"due_at"`
	ReturnedAt     *time.Time   `json:"returnedAt,omitempty" db:"returned_at"`
	BorrowPhotoURL string       `json:"borrowPhotoUrl,omitempty" db:"borrow_photo_url"`
	ReturnPhotoURL string       `json:"returnPhotoUrl,omitempty" db:"return_photo_url"`
	Notes          string       `json:"notes,omitempty" db:"notes"`
	Extensions     []Extension  `json:"extensions"`
	Version        int          `json:"-" db:"version"`

	// now is the clock used when the transaction is rendered as JSON.
	now time.Time
}

// Extension is an immutable record of one due-date push.
type Extension struct {
	ID         string    `json:"id" db:"id"`
	ExtendedAt time.Time `json:"extendedAt" db:"extended_at"`
	NewDueAt   time.Time `json:"newDueAt" db:"new_due_at"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
}

// Active reports whether the book is still out.
func (t BorrowTransaction) Active() bool {
	return t.Status == StatusBorrowed
}

// IsOverdue reports whether a still-borrowed loan is past its due date at now.
func (t BorrowTransaction) IsOverdue(now time.Time) bool {
	return t.Active() && now.After(t.DueAt)
}

// EffectiveStatus is the status a reader should see at now: an outstanding
// loan past its due date shows as overdue even though it is stored as borrowed.
func (t BorrowTransaction) EffectiveStatus(now time.Time) BorrowStatus {
	if t.IsOverdue(now) {
		return StatusOverdue
	}
	return t.Status
}

// At pins the clock used for isOverdue/effectiveStatus in the JSON form.
func (t BorrowTransaction) At(now time.Time) BorrowTransaction {
	t.now = now
	return t
}

func (t BorrowTransaction) MarshalJSON() ([]byte, error) {
	type plain BorrowTransaction
	now := t.now
	if now.IsZero() {
		now = time.Now()
	}
	ext := t.Extensions
	if ext == nil {
		ext = []Extension{}
	}
	p := plain(t)
	p.Extensions = ext
	return json.Marshal(struct {
		plain
		IsOverdue       bool         `json:"isOverdue"`
		EffectiveStatus BorrowStatus `json:"effectiveStatus"`
	}{p, t.IsOverdue(now), t.EffectiveStatus(now)})
}

// ExtendRequest adalah payload untuk memperpanjang peminjaman.
type ExtendRequest struct {
	Days   *int   `json:"days"`
	Reason string `json:"reason"`
}

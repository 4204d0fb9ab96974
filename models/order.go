package models

import "time"

type OrderStatus string

const (
	OrderRequested OrderStatus = "requested"
	OrderApproved  OrderStatus = "approved"
	OrderPurchased OrderStatus = "purchased"
	OrderRejected  OrderStatus = "rejected"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderRequested, OrderApproved, OrderPurchased, OrderRejected:
		return true
	}
	return false
}

// Order adalah permintaan anggota agar perpustakaan membeli judul baru.
type Order struct {
	ID          string      `json:"id" db:"id"`
	RequestedBy string      `json:"requestedBy" db:"requested_by"`
	Title       string      `json:"title" db:"title"`
	Author      string      `json:"author,omitempty" db:"author"`
	ISBN        string      `json:"isbn,omitempty" db:"isbn"`
	Status      OrderStatus `json:"status" db:"status"`
	Notes       string      `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type OrderRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Notes  string `json:"notes"`
}

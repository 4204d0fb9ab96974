package models

import "time"

// Notification adalah pesan untuk satu pengguna (pengingat jatuh tempo dll).
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"isRead" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// DashboardStats are the counts shown on the admin console.
type DashboardStats struct {
	Users           int `json:"users"`
	Books           int `json:"books"`
	AvailableCopies int `json:"availableCopies"`
	ActiveBorrows   int `json:"activeBorrows"`
	OverdueBorrows  int `json:"overdueBorrows"`
	PendingOrders   int `json:"pendingOrders"`
}

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
// ORDERS (permintaan pengadaan buku)
// ==========================================

const orderColumns = "id, requested_by, title, author, isbn, status, notes, created_at, updated_at"

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	var status string
	var author, isbn, notes sql.NullString
	if err := row.Scan(&o.ID, &o.RequestedBy, &o.Title, &author, &isbn, &status, &notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Author = author.String
	o.ISBN = isbn.String
	o.Notes = notes.String
	o.Status = models.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.Order, error) {
	now := s.now()
	o := &models.Order{
		ID:          uuid.NewString(),
		RequestedBy: userID,
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		ISBN:        strings.TrimSpace(req.ISBN),
		Status:      models.OrderRequested,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.exec(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		o.ID, o.RequestedBy, o.Title, nullString(o.Author), nullString(o.ISBN),
		string(o.Status), nullString(o.Notes), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// ListOrders returns orders newest first. An empty userID lists every order.
func (s *Store) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []any
	if userID != "" {
		query += " WHERE requested_by = ?"
		args = append(args, userID)
	}
	rows, err := s.query(ctx, query+" ORDER BY created_at DESC, id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(s.queryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// UpdateOrderStatus sets the status of an order. Any status may follow any
// other; staff can move an order back if they made a mistake.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	now := s.now()
	res, err := s.exec(ctx, "UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", string(status), now, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status models.OrderStatus) (int, error) {
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM orders WHERE status = ?", string(status)).Scan(&n)
	return n, err
}

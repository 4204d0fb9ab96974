package store

import (
	"context"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// NOTIFICATIONS
// ==========================================

func (s *Store) GetNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := s.query(ctx,
		"SELECT id, user_id, message, is_read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifs := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// CreateNotification stores a message for userID.
func (s *Store) CreateNotification(ctx context.Context, userID, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}
	_, err := s.exec(ctx,
		"INSERT INTO notifications (id, user_id, message, is_read, created_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Message, false, n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateNotificationOnce is CreateNotification for periodic reminders: if the
// user already has the exact same message (read or not) nothing is written
// and nil is returned.
func (s *Store) CreateNotificationOnce(ctx context.Context, userID, message string) (*models.Notification, error) {
	var count int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = ? AND message = ?", userID, message).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	return s.CreateNotification(ctx, userID, message)
}

// MarkNotificationRead marks a notification of userID as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.exec(ctx, "UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?", true, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, id, userID string) error {
	res, err := s.exec(ctx, "DELETE FROM notifications WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

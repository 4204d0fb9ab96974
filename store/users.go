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
// USERS
// ==========================================

const userColumns = "id, name, email, password_hash, role, blocked, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Blocked, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateUser stores a new account. Emails are compared case-insensitively.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	_, err := s.exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), false, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListUsers returns every account, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListUserIDs returns the ids of every account (used for broadcasts).
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, "SELECT id FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(h handle) error {
		res, err := h.exec(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUserNotFound
		}
		_, err = h.exec(ctx, "DELETE FROM community_members WHERE user_id = ?", id)
		return err
	})
}

// SetUserBlocked flips the blocked flag and returns the updated user.
func (s *Store) SetUserBlocked(ctx context.Context, id string, blocked bool) (*models.User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, "UPDATE users SET blocked = ? WHERE id = ?", blocked, id); err != nil {
		return nil, err
	}
	u.Blocked = blocked
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

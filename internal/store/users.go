package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateUser inserts a new user; email uniqueness is enforced by the table
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	var u models.User
	now := time.Now()
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, email, name, password_hash, avatar, created_at, updated_at
	`, uuid.NewString(), email, name, passwordHash, now).
		Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email already registered: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &u, nil
}

// UserByEmail returns a user by email
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, avatar, created_at, updated_at
		FROM users WHERE email = $1
	`, email))
}

// UserByID returns a user by id
func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, avatar, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

func (s *Store) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// CreateUser checks both unique fields and inserts in one transaction so the
// caller learns which field collided. A concurrent insert that slips past the
// checks is still reported through the unique index.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var exists bool

		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, u.Email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return &store.DuplicateError{Field: "email"}
		}

		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, u.Username).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return &store.DuplicateError{Field: "username"}
		}

		query := `
			INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING created_at, updated_at`

		err = tx.QueryRowContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.Role).
			Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				field := database.ViolatedColumn(err)
				if field == "" {
					field = "email"
				}
				return &store.DuplicateError{Field: field}
			}
			return fmt.Errorf("insert user: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	if err := scanUser(s.db.QueryRowContext(ctx, query, arg), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "LOWER(email) = LOWER($1)", email)
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

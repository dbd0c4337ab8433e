package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{}
	var items []byte

	query := `
		SELECT user_id, items, created_at, updated_at
		FROM carts
		WHERE user_id = $1`

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.UserID,
		&items,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}

	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, c *models.Cart) error {
	lines := c.Items
	if lines == nil {
		lines = []models.CartLine{}
	}

	items, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, items, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET items = EXCLUDED.items, updated_at = NOW()
		RETURNING created_at, updated_at`

	err = s.db.QueryRowContext(ctx, query, c.UserID, items).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.ClassifyError(err) == database.ErrorClassForeignKeyViolation {
			return fmt.Errorf("save cart: user %s: %w", c.UserID, store.ErrNotFound)
		}
		return fmt.Errorf("save cart: %w", err)
	}

	return nil
}

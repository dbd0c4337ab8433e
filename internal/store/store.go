// Package store defines the persistence contracts shared by the postgres,
// mongo and memory backends.
package store

import (
	"context"
	"errors"

	"github.com/safar/storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// DuplicateError reports which unique field collided. It matches ErrDuplicate
// under errors.Is.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "duplicate " + e.Field
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// GetProductsByIDs returns the products that exist, keyed by id. Missing
	// ids are absent from the map rather than reported as errors.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	QueryProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption, page, limit int) (*models.ProductPage, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
}

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	// SaveCart inserts or replaces the cart document for c.UserID. It returns
	// ErrNotFound when no user has that id.
	SaveCart(ctx context.Context, c *models.Cart) error
}

type Store interface {
	ProductStore
	UserStore
	CartStore
}

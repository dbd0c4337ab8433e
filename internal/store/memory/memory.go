// Package memory is an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	products map[string]models.Product
	users    map[string]models.User
	carts    map[string]models.Cart
	now      func() time.Time
}

func New() *Store {
	return &Store{
		products: make(map[string]models.Product),
		users:    make(map[string]models.User),
		carts:    make(map[string]models.Cart),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return &store.DuplicateError{Field: "id"}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = *p
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now()
	s.products[p.ID] = *p
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) QueryProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption) ([]models.Product, error) {
	s.mu.RLock()
	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Matches(p) {
			products = append(products, p)
		}
	}
	s.mu.RUnlock()

	store.SortProducts(products, sort)
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption, page, limit int) (*models.ProductPage, error) {
	page, limit = store.NormalizePage(page, limit)

	all, err := s.QueryProducts(ctx, filter, sort)
	if err != nil {
		return nil, err
	}

	total := int64(len(all))
	start := store.Offset(page, limit)
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return &models.ProductPage{
		Items:       all[start:end],
		TotalCount:  total,
		TotalPages:  store.TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return &store.DuplicateError{Field: "email"}
		}
		if existing.Username == u.Username {
			return &store.DuplicateError{Field: "username"}
		}
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Items = append([]models.CartLine(nil), c.Items...)
	return &c, nil
}

func (s *Store) SaveCart(ctx context.Context, c *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[c.UserID]; !ok {
		return store.ErrNotFound
	}

	now := s.now()
	if existing, ok := s.carts[c.UserID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	stored := *c
	stored.Items = append([]models.CartLine(nil), c.Items...)
	s.carts[c.UserID] = stored
	return nil
}

// Package postgres implements store.Store on PostgreSQL through lib/pq.
// Carts are kept as one JSONB document per user.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const productColumns = `id, title, description, category, brand, price, sell_price, total_stock, image, created_at, updated_at`

var orderClauses = map[models.SortOption]string{
	models.SortPriceLowToHigh: "price ASC, id ASC",
	models.SortPriceHighToLow: "price DESC, id ASC",
	models.SortTitleAToZ:      "title ASC, id ASC",
	models.SortTitleZToA:      "title DESC, id ASC",
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Category,
		&product.Brand,
		&product.Price,
		&product.SellPrice,
		&product.TotalStock,
		&product.Image,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, title, description, category, brand, price, sell_price, total_stock, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Description, p.Category, p.Brand, p.Price, p.SellPrice, p.TotalStock, p.Image,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(s.db.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	found := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		found[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return found, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET title = $2, description = $3, category = $4, brand = $5, price = $6,
		    sell_price = $7, total_stock = $8, image = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Description, p.Category, p.Brand, p.Price, p.SellPrice, p.TotalStock, p.Image,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
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

// filterClause renders filter as a WHERE clause whose placeholders start at $1.
func filterClause(filter models.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	if len(filter.Category) > 0 {
		args = append(args, pq.Array(filter.Category))
		conds = append(conds, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if len(filter.Brand) > 0 {
		args = append(args, pq.Array(filter.Brand))
		conds = append(conds, fmt.Sprintf("brand = ANY($%d)", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort models.SortOption) string {
	if clause, ok := orderClauses[sort]; ok {
		return " ORDER BY " + clause
	}
	return " ORDER BY " + orderClauses[models.DefaultSort]
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func (s *Store) QueryProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption) ([]models.Product, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + productColumns + ` FROM products` + where + orderClause(sort)

	return s.queryProducts(ctx, query, args...)
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption, page, limit int) (*models.ProductPage, error) {
	page, limit = store.NormalizePage(page, limit)
	where, args := filterClause(filter)

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s%s LIMIT $%d OFFSET $%d`,
		productColumns, where, orderClause(sort), len(args)+1, len(args)+2)

	products, err := s.queryProducts(ctx, query, append(args, limit, store.Offset(page, limit))...)
	if err != nil {
		return nil, err
	}

	return &models.ProductPage{
		Items:       products,
		TotalCount:  total,
		TotalPages:  store.TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

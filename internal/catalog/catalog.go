// Package catalog serves shopper product queries and the admin product CRUD.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/validate"
	"github.com/shopspring/decimal"
)

// ProductInput is the admin payload for a new product.
type ProductInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	SellPrice   decimal.Decimal `json:"sellPrice" validate:"gte=0"`
	TotalStock  *int            `json:"totalStock" validate:"required,gte=0"`
	Image       string          `json:"image"`
}

// ProductPatch is a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Brand       *string          `json:"brand"`
	Price       *decimal.Decimal `json:"price"`
	SellPrice   *decimal.Decimal `json:"sellPrice"`
	TotalStock  *int             `json:"totalStock"`
	Image       *string          `json:"image"`
}

type Service struct {
	products  store.ProductStore
	validator *validate.Validator
}

func NewService(products store.ProductStore) *Service {
	return &Service{products: products, validator: validate.New()}
}

func parseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid product id")
	}
	return nil
}

// QueryProducts returns every product matching filter in sort order. Unknown
// sort values fall back to price ascending.
func (s *Service) QueryProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption) ([]models.Product, error) {
	products, err := s.products.QueryProducts(ctx, cleanFilter(filter), models.ParseSortOption(string(sort)))
	if err != nil {
		return nil, apperr.Server("error fetching products", err)
	}
	return products, nil
}

func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption, page, limit int) (*models.ProductPage, error) {
	result, err := s.products.ListProducts(ctx, cleanFilter(filter), models.ParseSortOption(string(sort)), page, limit)
	if err != nil {
		return nil, apperr.Server("error fetching products", err)
	}
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Server("error fetching product", err)
	}
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.SellPrice.IsZero() {
		in.SellPrice = in.Price
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Brand:       in.Brand,
		Price:       in.Price,
		SellPrice:   in.SellPrice,
		TotalStock:  *in.TotalStock,
		Image:       in.Image,
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, apperr.Server("error creating product", err)
	}

	logging.FromContext(ctx).WithField("product_id", product.ID).Info("Product created")
	return product, nil
}

// UpdateProduct applies patch and validates the merged record. When the price
// changes and the sell price is untouched, a sell price that tracked the old
// price follows the new one.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if patch.Title != nil {
		merged.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Category != nil {
		merged.Category = *patch.Category
	}
	if patch.Brand != nil {
		merged.Brand = *patch.Brand
	}
	if patch.Price != nil {
		if patch.SellPrice == nil && current.SellPrice.Equal(current.Price) {
			merged.SellPrice = *patch.Price
		}
		merged.Price = *patch.Price
	}
	if patch.SellPrice != nil {
		merged.SellPrice = *patch.SellPrice
	}
	if patch.TotalStock != nil {
		merged.TotalStock = *patch.TotalStock
	}
	if patch.Image != nil {
		merged.Image = *patch.Image
	}

	stock := merged.TotalStock
	err = s.check(ProductInput{
		Title:      merged.Title,
		Price:      merged.Price,
		SellPrice:  merged.SellPrice,
		TotalStock: &stock,
	})
	if err != nil {
		return nil, err
	}

	if err := s.products.UpdateProduct(ctx, &merged); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Server("error updating product", err)
	}

	logging.FromContext(ctx).WithField("product_id", merged.ID).Info("Product updated")
	return &merged, nil
}

// DeleteProduct removes the product and returns it. Carts holding it are
// cleaned up when they are next read.
func (s *Service) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Server("error deleting product", err)
	}

	logging.FromContext(ctx).WithField("product_id", id).Info("Product deleted")
	return product, nil
}

func (s *Service) check(in ProductInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if in.SellPrice.GreaterThan(in.Price) {
		return apperr.Validation("sellPrice must not exceed price")
	}
	// Prices are stored as NUMERIC(12, 2).
	if !isCents(in.Price) {
		return apperr.Validation("price must have at most %d decimal places", priceScale)
	}
	if !isCents(in.SellPrice) {
		return apperr.Validation("sellPrice must have at most %d decimal places", priceScale)
	}
	return nil
}

const priceScale = 2

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(priceScale))
}

// cleanFilter trims values and drops empty ones so that an all-blank key does
// not constrain the query.
func cleanFilter(f models.ProductFilter) models.ProductFilter {
	return models.ProductFilter{
		Category: cleanValues(f.Category),
		Brand:    cleanValues(f.Brand),
	}
}

func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

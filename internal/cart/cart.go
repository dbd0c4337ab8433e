// Package cart owns the per-user cart aggregate. Carts store product
// references only; every operation resolves them against the live catalog,
// drops lines whose product is gone, and derives totals.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 10000

type Service struct {
	products store.ProductStore
	carts    store.CartStore
	metrics  *metrics.Metrics
}

func NewService(products store.ProductStore, carts store.CartStore, m *metrics.Metrics) *Service {
	return &Service{products: products, carts: carts, metrics: m}
}

func validID(kind, id string) error {
	if id == "" {
		return apperr.Validation("%s is required", kind)
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid %s", kind)
	}
	return nil
}

func (s *Service) loadCart(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("cart not found")
		}
		return nil, apperr.Server("error loading cart", err)
	}
	return c, nil
}

// AddLine adds quantity of productID to the user's cart, creating the cart on
// first use. An existing line for the product is incremented.
func (s *Service) AddLine(ctx context.Context, userID, productID string, quantity int) (_ *models.ResolvedCart, err error) {
	defer func() { s.metrics.RecordCartOperation("add", err) }()

	if err := validID("userId", userID); err != nil {
		return nil, err
	}
	if err := validID("productId", productID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return nil, apperr.Validation("quantity must be at most %d", MaxLineQuantity)
	}

	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Server("error loading product", err)
	}

	c, err := s.carts.GetCart(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c = &models.Cart{UserID: userID, Items: []models.CartLine{}}
	case err != nil:
		return nil, apperr.Server("error loading cart", err)
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if c.Items[i].Quantity > MaxLineQuantity-quantity {
				return nil, apperr.Validation("quantity must be at most %d", MaxLineQuantity)
			}
			c.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, models.CartLine{ProductID: productID, Quantity: quantity})
	}

	return s.resolve(ctx, c, true)
}

// UpdateLineQuantity sets the quantity of an existing line. A quantity of
// zero or less removes the line.
func (s *Service) UpdateLineQuantity(ctx context.Context, userID, productID string, quantity int) (_ *models.ResolvedCart, err error) {
	defer func() { s.metrics.RecordCartOperation("update", err) }()

	if err := validID("userId", userID); err != nil {
		return nil, err
	}
	if err := validID("productId", productID); err != nil {
		return nil, err
	}
	if quantity > MaxLineQuantity {
		return nil, apperr.Validation("quantity must be at most %d", MaxLineQuantity)
	}

	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, line := range c.Items {
		if line.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperr.NotFound("cart item not found")
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		c.Items[idx].Quantity = quantity
	}

	return s.resolve(ctx, c, true)
}

// RemoveLine drops the line for productID. Removing a product that is not in
// the cart is not an error.
func (s *Service) RemoveLine(ctx context.Context, userID, productID string) (_ *models.ResolvedCart, err error) {
	defer func() { s.metrics.RecordCartOperation("remove", err) }()

	if err := validID("userId", userID); err != nil {
		return nil, err
	}
	if err := validID("productId", productID); err != nil {
		return nil, err
	}

	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]models.CartLine, 0, len(c.Items))
	for _, line := range c.Items {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	c.Items = kept

	return s.resolve(ctx, c, true)
}

func (s *Service) GetCart(ctx context.Context, userID string) (_ *models.ResolvedCart, err error) {
	defer func() { s.metrics.RecordCartOperation("get", err) }()

	if err := validID("userId", userID); err != nil {
		return nil, err
	}

	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.resolve(ctx, c, false)
}

// ClearCart empties the user's cart. Clearing an absent cart writes nothing
// and returns an empty cart.
func (s *Service) ClearCart(ctx context.Context, userID string) (_ *models.ResolvedCart, err error) {
	defer func() { s.metrics.RecordCartOperation("clear", err) }()

	if err := validID("userId", userID); err != nil {
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &models.ResolvedCart{UserID: userID, Items: []models.CartItemView{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, apperr.Server("error loading cart", err)
	}

	c.Items = []models.CartLine{}
	return s.resolve(ctx, c, true)
}

// resolve joins the cart lines with live products. Lines whose product is
// gone are dropped, and the cart is saved once if it was modified by the
// caller (dirty) or by pruning.
func (s *Service) resolve(ctx context.Context, c *models.Cart, dirty bool) (*models.ResolvedCart, error) {
	ids := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.ProductID)
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Server("error loading cart", fmt.Errorf("load cart products: %w", err))
	}

	kept := make([]models.CartLine, 0, len(c.Items))
	views := make([]models.CartItemView, 0, len(c.Items))
	total := decimal.Zero
	totalItems := 0

	for _, line := range c.Items {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}
		kept = append(kept, line)
		views = append(views, models.CartItemView{
			ProductID: p.ID,
			Title:     p.Title,
			Image:     p.Image,
			Price:     p.Price,
			SellPrice: p.SellPrice,
			Stock:     p.TotalStock,
			Quantity:  line.Quantity,
		})
		total = total.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalItems += line.Quantity
	}

	if pruned := len(c.Items) - len(kept); pruned > 0 {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"user_id": c.UserID,
			"pruned":  pruned,
		}).Info("Pruned stale cart lines")
		s.metrics.RecordPrunedLines(pruned)
		dirty = true
	}
	c.Items = kept

	if dirty {
		if err := s.carts.SaveCart(ctx, c); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("user not found")
			}
			return nil, apperr.Server("error saving cart", err)
		}
	}

	return &models.ResolvedCart{
		UserID:     c.UserID,
		Items:      views,
		Total:      total,
		TotalItems: totalItems,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}, nil
}

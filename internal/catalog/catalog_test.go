package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	*memory.Store
}

func (brokenStore) QueryProducts(context.Context, models.ProductFilter, models.SortOption) ([]models.Product, error) {
	return nil, errors.New("server selection timeout")
}

func intPtr(n int) *int { return &n }

func mustCreate(t *testing.T, svc *Service, title, category, brand string, price int64) *models.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), ProductInput{
		Title:      title,
		Category:   category,
		Brand:      brand,
		Price:      decimal.NewFromInt(price),
		TotalStock: intPtr(5),
	})
	require.NoError(t, err)
	return p
}

func TestQueryProductsSortsByPriceDescending(t *testing.T) {
	svc := NewService(memory.New())
	for _, price := range []int64{10, 30, 20} {
		mustCreate(t, svc, "Item", "men", "acme", price)
	}

	products, err := svc.QueryProducts(context.Background(), models.ProductFilter{}, models.SortPriceHighToLow)
	require.NoError(t, err)

	var prices []string
	for _, p := range products {
		prices = append(prices, p.Price.String())
	}
	assert.Equal(t, []string{"30", "20", "10"}, prices)
}

func TestQueryProductsFilterSemantics(t *testing.T) {
	svc := NewService(memory.New())
	mustCreate(t, svc, "A", "men", "nike", 10)
	mustCreate(t, svc, "B", "women", "nike", 20)
	mustCreate(t, svc, "C", "kids", "nike", 30)
	mustCreate(t, svc, "D", "men", "puma", 40)

	ctx := context.Background()

	got, err := svc.QueryProducts(ctx, models.ProductFilter{Category: []string{"men", "women"}}, models.SortTitleAToZ)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, titles(got))

	got, err = svc.QueryProducts(ctx, models.ProductFilter{Category: []string{"men", "women"}, Brand: []string{"nike"}}, models.SortTitleZToA)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(got))

	got, err = svc.QueryProducts(ctx, models.ProductFilter{Category: []string{" ", ""}}, models.SortOption("nonsense"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles(got))

	got, err = svc.QueryProducts(ctx, models.ProductFilter{Brand: []string{"adidas"}}, models.DefaultSort)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func titles(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Title)
	}
	return out
}

func TestQueryProductsStorageFailure(t *testing.T) {
	svc := NewService(brokenStore{memory.New()})

	_, err := svc.QueryProducts(context.Background(), models.ProductFilter{}, models.DefaultSort)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
	assert.Equal(t, "error fetching products", apperr.Message(err))
}

func TestListProductsDefaults(t *testing.T) {
	svc := NewService(memory.New())
	for i := 0; i < 12; i++ {
		mustCreate(t, svc, "Item", "men", "acme", int64(i+1))
	}

	page, err := svc.ListProducts(context.Background(), models.ProductFilter{}, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, int64(12), page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 10)
}

func TestGetProduct(t *testing.T) {
	svc := NewService(memory.New())
	created := mustCreate(t, svc, "Shirt", "men", "acme", 10)
	ctx := context.Background()

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", got.Title)

	_, err = svc.GetProduct(ctx, "123")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = svc.GetProduct(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestCreateProductRules(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	p := mustCreate(t, svc, "Shirt", "men", "acme", 10)
	assert.True(t, p.SellPrice.Equal(p.Price), "sell price should default to price")

	cases := []struct {
		in   ProductInput
		want string
	}{
		{ProductInput{Price: decimal.NewFromInt(1), TotalStock: intPtr(1)}, "title is required"},
		{ProductInput{Title: "x", TotalStock: intPtr(1)}, "price must be greater than 0"},
		{ProductInput{Title: "x", Price: decimal.NewFromInt(1)}, "totalStock is required"},
		{ProductInput{Title: "x", Price: decimal.NewFromInt(1), TotalStock: intPtr(-2)}, "totalStock must be at least 0"},
		{ProductInput{Title: "x", Price: decimal.NewFromInt(5), SellPrice: decimal.NewFromInt(6), TotalStock: intPtr(1)}, "sellPrice must not exceed price"},
		{ProductInput{Title: "x", Price: decimal.RequireFromString("19.999"), TotalStock: intPtr(1)}, "price must have at most 2 decimal places"},
		{ProductInput{Title: "x", Price: decimal.NewFromInt(20), SellPrice: decimal.RequireFromString("9.001"), TotalStock: intPtr(1)}, "sellPrice must have at most 2 decimal places"},
	}

	for _, c := range cases {
		_, err := svc.CreateProduct(ctx, c.in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v: %v", c.in, err)
		assert.Equal(t, c.want, apperr.Message(err))
	}
}

func TestPriceScale(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ProductInput{Title: "x", Price: decimal.RequireFromString("19.990"), TotalStock: intPtr(1)})
	require.NoError(t, err, "trailing zeros are within two places")
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))

	fine := decimal.RequireFromString("0.005")
	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{SellPrice: &fine})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	stored, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.SellPrice.Equal(p.SellPrice), "rejected update must not persist")
}

func TestUpdateProductPartial(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()
	p := mustCreate(t, svc, "Shirt", "men", "acme", 10)

	newPrice := decimal.NewFromInt(8)
	stock := 0
	updated, err := svc.UpdateProduct(ctx, p.ID, ProductPatch{Price: &newPrice, TotalStock: &stock})
	require.NoError(t, err)

	assert.Equal(t, "Shirt", updated.Title)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.True(t, updated.SellPrice.Equal(newPrice), "tracking sell price should follow price")
	assert.Equal(t, 0, updated.TotalStock)

	zero := decimal.Zero
	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{Price: &zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	negative := -1
	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{TotalStock: &negative})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = svc.UpdateProduct(ctx, uuid.NewString(), ProductPatch{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	_, err = svc.UpdateProduct(ctx, "bad", ProductPatch{})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestDeleteProduct(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()
	p := mustCreate(t, svc, "Shirt", "men", "acme", 10)

	deleted, err := svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = svc.DeleteProduct(ctx, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	_, err = svc.DeleteProduct(ctx, "not-an-id")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Brand       string               `bson:"brand"`
	Price       primitive.Decimal128 `bson:"price"`
	SellPrice   primitive.Decimal128 `bson:"sell_price"`
	TotalStock  int                  `bson:"total_stock"`
	Image       string               `bson:"image"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func newProductDoc(p *models.Product) (*productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, fmt.Errorf("encode price: %w", err)
	}
	sellPrice, err := toDecimal128(p.SellPrice)
	if err != nil {
		return nil, fmt.Errorf("encode sell price: %w", err)
	}

	return &productDoc{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       price,
		SellPrice:   sellPrice,
		TotalStock:  p.TotalStock,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d *productDoc) product() (models.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("decode price: %w", err)
	}
	sellPrice, err := fromDecimal128(d.SellPrice)
	if err != nil {
		return models.Product{}, fmt.Errorf("decode sell price: %w", err)
	}

	return models.Product{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Brand:       d.Brand,
		Price:       price,
		SellPrice:   sellPrice,
		TotalStock:  d.TotalStock,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func productFilter(filter models.ProductFilter) bson.M {
	query := bson.M{}
	if len(filter.Category) > 0 {
		query["category"] = bson.M{"$in": filter.Category}
	}
	if len(filter.Brand) > 0 {
		query["brand"] = bson.M{"$in": filter.Brand}
	}
	return query
}

func productSort(sort models.SortOption) bson.D {
	switch sort {
	case models.SortPriceHighToLow:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case models.SortTitleAToZ:
		return bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortTitleZToA:
		return bson.D{{Key: "title", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	}
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now

	doc, err := newProductDoc(p)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &store.DuplicateError{Field: "id"}
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var doc productDoc
	if err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	product, err := doc.product()
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	found := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	products, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}

	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = s.now()

	doc, err := newProductDoc(p)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"category":    doc.Category,
		"brand":       doc.Brand,
		"price":       doc.Price,
		"sell_price":  doc.SellPrice,
		"total_stock": doc.TotalStock,
		"image":       doc.Image,
		"updated_at":  doc.UpdatedAt,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated productDoc
	err = s.products.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.ErrNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}

	p.CreatedAt = updated.CreatedAt
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cursor, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		product, err := doc.product()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return products, nil
}

func (s *Store) QueryProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption) ([]models.Product, error) {
	products, err := s.find(ctx, productFilter(filter), options.Find().SetSort(productSort(sort)))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, sort models.SortOption, page, limit int) (*models.ProductPage, error) {
	page, limit = store.NormalizePage(page, limit)
	query := productFilter(filter)

	total, err := s.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().
		SetSort(productSort(sort)).
		SetSkip(int64(store.Offset(page, limit))).
		SetLimit(int64(limit))

	products, err := s.find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &models.ProductPage{
		Items:       products,
		TotalCount:  total,
		TotalPages:  store.TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDoc struct {
	UserID    string            `bson:"_id"`
	Items     []models.CartLine `bson:"items"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var doc cartDoc
	if err := s.carts.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items := doc.Items
	if items == nil {
		items = []models.CartLine{}
	}

	return &models.Cart{
		UserID:    doc.UserID,
		Items:     items,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// SaveCart upserts the cart of an existing user. Carts of unknown users are
// rejected with store.ErrNotFound.
func (s *Store) SaveCart(ctx context.Context, c *models.Cart) error {
	owners, err := s.users.CountDocuments(ctx, bson.M{"_id": c.UserID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check cart owner: %w", err)
	}
	if owners == 0 {
		return fmt.Errorf("save cart: user %s: %w", c.UserID, store.ErrNotFound)
	}

	now := s.now()
	items := c.Items
	if items == nil {
		items = []models.CartLine{}
	}

	update := bson.M{
		"$set":         bson.M{"items": items, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved cartDoc
	if err := s.carts.FindOneAndUpdate(ctx, bson.M{"_id": c.UserID}, update, opts).Decode(&saved); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	c.CreatedAt, c.UpdatedAt = saved.CreatedAt, saved.UpdatedAt
	return nil
}

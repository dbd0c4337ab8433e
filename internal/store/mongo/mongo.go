// Package mongo implements store.Store on MongoDB. Prices are persisted as
// Decimal128 and carts live in their own collection keyed by user id.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	cartsCollection    = "carts"
)

type Store struct {
	products *mongo.Collection
	users    *mongo.Collection
	carts    *mongo.Collection
	now      func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		products: db.Collection(productsCollection),
		users:    db.Collection(usersCollection),
		carts:    db.Collection(cartsCollection),
		// Mongo stores milliseconds; truncating keeps returned values equal to stored ones.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

var _ store.Store = (*Store)(nil)

// EnsureIndexes creates the unique user indexes and the product filter
// indexes. It is safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_key")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_key")},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "brand", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	return nil
}

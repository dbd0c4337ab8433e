package state

import (
	"context"
	"errors"
	"sync"

	"github.com/safar/storefront/client"
)

var ErrNoStore = errors.New("no state store in context")

// API is the part of the HTTP client the thunks call.
type API interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, email, password string) (*client.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.User, error)
	Products(ctx context.Context, q client.ProductQuery) ([]client.Product, error)
	Product(ctx context.Context, id string) (*client.Product, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*client.Cart, error)
	UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (*client.Cart, error)
	RemoveFromCart(ctx context.Context, userID, productID string) (*client.Cart, error)
	ClearCart(ctx context.Context, userID string) (*client.Cart, error)
	Cart(ctx context.Context, userID string) (*client.Cart, error)
	CreateProduct(ctx context.Context, in client.ProductInput) (*client.Product, error)
	AdminProducts(ctx context.Context, q client.ProductQuery) (*client.ProductPage, error)
	UpdateProduct(ctx context.Context, id string, patch client.ProductPatch) (*client.Product, error)
	DeleteProduct(ctx context.Context, id string) (*client.Product, error)
}

var _ API = (*client.Client)(nil)

// Store is the single state container of a client session.
type Store struct {
	api API

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewStore(api API) *Store {
	return &Store{
		api:       api,
		state:     Initial(),
		listeners: make(map[int]func(State)),
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state. Listeners
// run outside the lock and may dispatch.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Subscribe registers fn for state changes and returns its cancel function.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

type storeKey struct{}

func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeKey{}).(*Store)
	return s
}

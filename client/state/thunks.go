package state

import (
	"context"

	"github.com/safar/storefront/client"
)

// run dispatches the pending phase, calls the API, then dispatches either
// the fulfilled or the rejected phase.
func run[T any](ctx context.Context, typ ActionType, call func(API) (T, error)) (T, error) {
	var zero T

	s := FromContext(ctx)
	if s == nil {
		return zero, ErrNoStore
	}

	s.Dispatch(Action{Type: typ, Phase: PhasePending})

	v, err := call(s.api)
	if err != nil {
		s.Dispatch(Action{Type: typ, Phase: PhaseRejected, Err: err})
		return zero, err
	}

	s.Dispatch(Action{Type: typ, Phase: PhaseFulfilled, Payload: v})
	return v, nil
}

func Register(ctx context.Context, username, email, password string) error {
	_, err := run(ctx, ActionRegister, func(api API) (struct{}, error) {
		return struct{}{}, api.Register(ctx, username, email, password)
	})
	return err
}

func Login(ctx context.Context, email, password string) (*client.User, error) {
	return run(ctx, ActionLogin, func(api API) (*client.User, error) {
		return api.Login(ctx, email, password)
	})
}

func Logout(ctx context.Context) error {
	_, err := run(ctx, ActionLogout, func(api API) (struct{}, error) {
		return struct{}{}, api.Logout(ctx)
	})
	return err
}

// CheckAuth restores the identity of an existing session.
func CheckAuth(ctx context.Context) (*client.User, error) {
	return run(ctx, ActionCheckAuth, func(api API) (*client.User, error) {
		return api.Me(ctx)
	})
}

func FetchProducts(ctx context.Context, q client.ProductQuery) ([]client.Product, error) {
	return run(ctx, ActionFetchShop, func(api API) ([]client.Product, error) {
		return api.Products(ctx, q)
	})
}

func FetchProductDetails(ctx context.Context, id string) (*client.Product, error) {
	return run(ctx, ActionFetchDetail, func(api API) (*client.Product, error) {
		return api.Product(ctx, id)
	})
}

func AddToCart(ctx context.Context, userID, productID string, quantity int) (*client.Cart, error) {
	return run(ctx, ActionAddToCart, func(api API) (*client.Cart, error) {
		return api.AddToCart(ctx, userID, productID, quantity)
	})
}

func GetCart(ctx context.Context, userID string) (*client.Cart, error) {
	return run(ctx, ActionGetCart, func(api API) (*client.Cart, error) {
		return api.Cart(ctx, userID)
	})
}

func UpdateCartItemQuantity(ctx context.Context, userID, productID string, quantity int) (*client.Cart, error) {
	return run(ctx, ActionUpdateCart, func(api API) (*client.Cart, error) {
		return api.UpdateCartItem(ctx, userID, productID, quantity)
	})
}

func RemoveFromCart(ctx context.Context, userID, productID string) (*client.Cart, error) {
	return run(ctx, ActionRemoveCart, func(api API) (*client.Cart, error) {
		return api.RemoveFromCart(ctx, userID, productID)
	})
}

func ClearCart(ctx context.Context, userID string) (*client.Cart, error) {
	return run(ctx, ActionClearCart, func(api API) (*client.Cart, error) {
		return api.ClearCart(ctx, userID)
	})
}

// ResetCart drops the cached cart without calling the API.
func ResetCart(ctx context.Context) error {
	s := FromContext(ctx)
	if s == nil {
		return ErrNoStore
	}
	s.Dispatch(Action{Type: ActionResetCart})
	return nil
}

func FetchAdminProducts(ctx context.Context, q client.ProductQuery) (*client.ProductPage, error) {
	return run(ctx, ActionFetchAdmin, func(api API) (*client.ProductPage, error) {
		return api.AdminProducts(ctx, q)
	})
}

func CreateProduct(ctx context.Context, in client.ProductInput) (*client.Product, error) {
	return run(ctx, ActionCreate, func(api API) (*client.Product, error) {
		return api.CreateProduct(ctx, in)
	})
}

func UpdateProduct(ctx context.Context, id string, patch client.ProductPatch) (*client.Product, error) {
	return run(ctx, ActionUpdate, func(api API) (*client.Product, error) {
		return api.UpdateProduct(ctx, id, patch)
	})
}

func DeleteProduct(ctx context.Context, id string) (*client.Product, error) {
	return run(ctx, ActionDelete, func(api API) (*client.Product, error) {
		return api.DeleteProduct(ctx, id)
	})
}

// Package state holds client-side application state and the actions that
// move it. Reduce is pure; Store serializes dispatches and notifies
// subscribers after each transition.
package state

import (
	"github.com/safar/storefront/client"
	"github.com/shopspring/decimal"
)

type ActionType string

const (
	ActionRegister    ActionType = "auth/register"
	ActionLogin       ActionType = "auth/login"
	ActionLogout      ActionType = "auth/logout"
	ActionCheckAuth   ActionType = "auth/checkAuth"
	ActionAddToCart   ActionType = "cart/addToCart"
	ActionGetCart     ActionType = "cart/getCart"
	ActionUpdateCart  ActionType = "cart/updateCartItemQuantity"
	ActionRemoveCart  ActionType = "cart/removeFromCart"
	ActionClearCart   ActionType = "cart/clearCart"
	ActionResetCart   ActionType = "cart/resetCart"
	ActionFetchShop   ActionType = "shopProducts/fetchAllFilteredProducts"
	ActionFetchDetail ActionType = "shopProducts/fetchProductDetails"
	ActionFetchAdmin  ActionType = "adminProducts/fetchAllProducts"
	ActionCreate      ActionType = "adminProducts/createProduct"
	ActionUpdate      ActionType = "adminProducts/updateProduct"
	ActionDelete      ActionType = "adminProducts/deleteProduct"
	ActionClearError  ActionType = "adminProducts/clearError"
)

// Phase is the lifecycle stage of an async action. Synchronous actions use
// PhaseNone.
type Phase int

const (
	PhaseNone Phase = iota
	PhasePending
	PhaseFulfilled
	PhaseRejected
)

type Action struct {
	Type    ActionType
	Phase   Phase
	Payload interface{}
	Err     error
}

type AuthState struct {
	User            *client.User
	IsAuthenticated bool
	Loading         bool
	Err             error
}

type CartState struct {
	Cart       *client.Cart
	Total      decimal.Decimal
	TotalItems int
	Loading    bool
	Err        error
}

type CatalogState struct {
	Products []client.Product
	Current  *client.Product
	Loading  bool
	Err      error
}

type Pagination struct {
	TotalCount  int64
	TotalPages  int
	CurrentPage int
}

type AdminState struct {
	Products   []client.Product
	Current    *client.Product
	Pagination Pagination
	Loading    bool
	Err        error
}

type State struct {
	Auth    AuthState
	Cart    CartState
	Catalog CatalogState
	Admin   AdminState
}

func Initial() State {
	return State{
		Catalog: CatalogState{Products: []client.Product{}},
		Admin: AdminState{
			Products:   []client.Product{},
			Pagination: Pagination{CurrentPage: 1},
		},
	}
}

// Reduce returns the state after a. The input state is never modified;
// slices that change are copied.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionRegister, ActionLogin, ActionLogout, ActionCheckAuth:
		s.Auth = reduceAuth(s.Auth, a)
		if a.Type == ActionLogout && a.Phase == PhaseFulfilled {
			s.Cart = CartState{}
		}
	case ActionAddToCart, ActionGetCart, ActionUpdateCart, ActionRemoveCart, ActionClearCart, ActionResetCart:
		s.Cart = reduceCart(s.Cart, a)
	case ActionFetchShop, ActionFetchDetail:
		s.Catalog = reduceCatalog(s.Catalog, a)
	case ActionFetchAdmin, ActionCreate, ActionUpdate, ActionDelete, ActionClearError:
		s.Admin = reduceAdmin(s.Admin, a)
	}
	return s
}

func reduceAuth(s AuthState, a Action) AuthState {
	switch a.Phase {
	case PhasePending:
		s.Loading = true
		s.Err = nil
	case PhaseRejected:
		s.Loading = false
		s.Err = a.Err
		if a.Type != ActionRegister {
			s.User = nil
			s.IsAuthenticated = false
		}
	case PhaseFulfilled:
		s.Loading = false
		switch a.Type {
		case ActionLogin, ActionCheckAuth:
			if u, ok := a.Payload.(*client.User); ok && u != nil {
				s.User = u
				s.IsAuthenticated = true
			}
		case ActionLogout:
			s.User = nil
			s.IsAuthenticated = false
		}
	}
	return s
}

func reduceCart(s CartState, a Action) CartState {
	if a.Type == ActionResetCart {
		return CartState{}
	}

	switch a.Phase {
	case PhasePending:
		s.Loading = true
		s.Err = nil
	case PhaseRejected:
		s.Loading = false
		s.Err = a.Err
	case PhaseFulfilled:
		s.Loading = false
		c, _ := a.Payload.(*client.Cart)
		s.Cart = c
		if a.Type == ActionClearCart || c == nil {
			s.Total = decimal.Zero
			s.TotalItems = 0
		} else {
			s.Total = c.Total
			s.TotalItems = c.TotalItems
		}
	}
	return s
}

func reduceCatalog(s CatalogState, a Action) CatalogState {
	switch a.Phase {
	case PhasePending:
		s.Loading = true
		s.Err = nil
	case PhaseRejected:
		s.Loading = false
		s.Err = a.Err
		if a.Type == ActionFetchShop {
			s.Products = []client.Product{}
		}
	case PhaseFulfilled:
		s.Loading = false
		switch p := a.Payload.(type) {
		case []client.Product:
			s.Products = p
		case *client.Product:
			s.Current = p
		}
	}
	return s
}

func reduceAdmin(s AdminState, a Action) AdminState {
	if a.Type == ActionClearError {
		s.Err = nil
		return s
	}

	switch a.Phase {
	case PhasePending:
		s.Loading = true
		s.Err = nil
	case PhaseRejected:
		s.Loading = false
		s.Err = a.Err
		if a.Type == ActionFetchAdmin {
			s.Products = []client.Product{}
		}
	case PhaseFulfilled:
		s.Loading = false
		switch a.Type {
		case ActionFetchAdmin:
			if page, ok := a.Payload.(*client.ProductPage); ok && page != nil {
				s.Products = page.Items
				s.Pagination = Pagination{
					TotalCount:  page.TotalCount,
					TotalPages:  page.TotalPages,
					CurrentPage: page.CurrentPage,
				}
			}
		case ActionCreate:
			if p, ok := a.Payload.(*client.Product); ok && p != nil {
				products := make([]client.Product, 0, len(s.Products)+1)
				s.Products = append(append(products, s.Products...), *p)
				s.Current = p
			}
		case ActionUpdate:
			if p, ok := a.Payload.(*client.Product); ok && p != nil {
				products := append([]client.Product(nil), s.Products...)
				for i := range products {
					if products[i].ID == p.ID {
						products[i] = *p
					}
				}
				s.Products = products
				s.Current = p
			}
		case ActionDelete:
			if p, ok := a.Payload.(*client.Product); ok && p != nil {
				products := make([]client.Product, 0, len(s.Products))
				for _, existing := range s.Products {
					if existing.ID != p.ID {
						products = append(products, existing)
					}
				}
				s.Products = products
			}
		}
	}
	return s
}

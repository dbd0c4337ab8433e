package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/models"
)

type cartLineRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// cartOwner resolves the cart a request addresses. An empty userID means the
// caller's own cart; only admins may address another user's cart.
func cartOwner(r *http.Request, userID string) (string, error) {
	identity := identityFrom(r.Context())
	if identity == nil {
		return "", apperr.Auth("unauthorized user")
	}
	if userID == "" || userID == identity.ID {
		return identity.ID, nil
	}
	if identity.Role != models.RoleAdmin {
		return "", apperr.Forbidden("access denied")
	}
	return userID, nil
}

func (s *Server) decodeCartLine(w http.ResponseWriter, r *http.Request) (cartLineRequest, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, "", err
	}

	owner, err := cartOwner(r, req.UserID)
	return req, owner, err
}

func (s *Server) handleCartAdd() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, owner, err := s.decodeCartLine(w, r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		resolved, err := s.cart.AddLine(r.Context(), owner, req.ProductID, quantity)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Product added to cart", "cart": resolved})
	}
}

func (s *Server) handleCartUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, owner, err := s.decodeCartLine(w, r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if req.Quantity == nil {
			respondError(w, r, apperr.Validation("quantity is required"))
			return
		}

		resolved, err := s.cart.UpdateLineQuantity(r.Context(), owner, req.ProductID, *req.Quantity)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Cart item updated", "cart": resolved})
	}
}

func (s *Server) handleCartClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, owner, err := s.decodeCartLine(w, r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		resolved, err := s.cart.ClearCart(r.Context(), owner)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Cart cleared", "cart": resolved})
	}
}

func (s *Server) handleCartGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r, mux.Vars(r)["userId"])
		if err != nil {
			respondError(w, r, err)
			return
		}

		resolved, err := s.cart.GetCart(r.Context(), owner)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"cart": resolved})
	}
}

func (s *Server) handleCartRemove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		owner, err := cartOwner(r, vars["userId"])
		if err != nil {
			respondError(w, r, err)
			return
		}

		resolved, err := s.cart.RemoveLine(r.Context(), owner, vars["productId"])
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Cart item deleted", "cart": resolved})
	}
}

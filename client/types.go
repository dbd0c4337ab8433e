package client

import (
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/models"
)

// Types exchanged with the API. They are aliases so callers outside this
// module can build and read them without importing internal packages.
type (
	Product      = models.Product
	ProductPage  = models.ProductPage
	User         = models.PublicUser
	Role         = models.Role
	Cart         = models.ResolvedCart
	CartItem     = models.CartItemView
	ProductInput = catalog.ProductInput
	ProductPatch = catalog.ProductPatch
)

const (
	RoleUser  = models.RoleUser
	RoleAdmin = models.RoleAdmin
)

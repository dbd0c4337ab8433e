package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the view of a user returned by the API.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	SellPrice   decimal.Decimal `json:"sellPrice"`
	TotalStock  int             `json:"totalStock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// EffectivePrice is the sell price when one is set, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SellPrice.IsPositive() {
		return p.SellPrice
	}
	return p.Price
}

type CartLine struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is the persisted cart document. It holds product references only;
// prices and totals are derived on every read.
type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartLine `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItemView struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

type ResolvedCart struct {
	UserID     string          `json:"userId"`
	Items      []CartItemView  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"totalItems"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type SortOption string

const (
	SortPriceLowToHigh SortOption = "price-lowtohigh"
	SortPriceHighToLow SortOption = "price-hightolow"
	SortTitleAToZ      SortOption = "title-atoz"
	SortTitleZToA      SortOption = "title-ztoa"

	DefaultSort = SortPriceLowToHigh
)

// ParseSortOption maps unknown or empty input to DefaultSort.
func ParseSortOption(s string) SortOption {
	switch opt := SortOption(strings.ToLower(strings.TrimSpace(s))); opt {
	case SortPriceLowToHigh, SortPriceHighToLow, SortTitleAToZ, SortTitleZToA:
		return opt
	default:
		return DefaultSort
	}
}

// ProductFilter matches products whose category is any of Category and whose
// brand is any of Brand. An empty set does not constrain its field.
type ProductFilter struct {
	Category []string
	Brand    []string
}

func (f ProductFilter) Matches(p Product) bool {
	return matchesAny(f.Category, p.Category) && matchesAny(f.Brand, p.Brand)
}

func matchesAny(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

type ProductPage struct {
	Items       []Product `json:"items"`
	TotalCount  int64     `json:"totalCount"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
	Limit       int       `json:"limit"`
}

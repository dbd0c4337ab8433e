package store

import (
	"sort"

	"github.com/safar/storefront/internal/models"
)

// SortProducts orders products in place by opt, breaking ties by id so that
// results and pages are stable.
func SortProducts(products []models.Product, opt models.SortOption) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch opt {
		case models.SortPriceHighToLow:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c > 0
			}
		case models.SortTitleAToZ:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case models.SortTitleZToA:
			if a.Title != b.Title {
				return a.Title > b.Title
			}
		default:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c < 0
			}
		}
		return a.ID < b.ID
	})
}

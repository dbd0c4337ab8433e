package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/safar/storefront/internal/models"
)

// productQuery is the filter payload accepted by the product listing
// endpoints, either as a JSON body or as query parameters.
type productQuery struct {
	Category []string `json:"category"`
	Brand    []string `json:"brand"`
	SortBy   string   `json:"sortBy"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
}

func (q productQuery) filter() models.ProductFilter {
	return models.ProductFilter{Category: q.Category, Brand: q.Brand}
}

// parseProductQuery reads the filter from the body on POST and from the URL
// otherwise. Repeated and comma separated values are both accepted.
func parseProductQuery(r *http.Request) (productQuery, error) {
	var q productQuery

	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &q); err != nil {
			return q, err
		}
		return q, nil
	}

	values := r.URL.Query()
	q.Category = splitValues(values["category"])
	q.Brand = splitValues(values["brand"])
	q.SortBy = values.Get("sortBy")
	q.Page = atoiOrZero(values.Get("page"))
	q.Limit = atoiOrZero(values.Get("limit"))
	return q, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleShopProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		q, err := parseProductQuery(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		products, err := s.catalog.QueryProducts(r.Context(), q.filter(), models.ParseSortOption(q.SortBy))
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"products": products})
	}
}

func (s *Server) handleGetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := s.catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"data": product})
	}
}

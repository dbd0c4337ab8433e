package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safar/storefront/client"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Callers outside the module only see the client package.
func TestExportedTypesCoverRequestsAndResponses(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/products/add":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"product":{"id":"p1","title":"Shirt","price":"12.5"}}`))
		case "/api/auth/me":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"user":{"id":"u1","username":"ann","role":"user"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	stock := 3
	in := client.ProductInput{Title: "Shirt", Price: decimal.RequireFromString("12.5"), TotalStock: &stock}
	var product *client.Product
	product, err = c.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "Shirt", got["title"])

	var user *client.User
	user, err = c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.RoleUser, user.Role)
}

package validate

import (
	"testing"

	"github.com/safar/storefront/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string          `json:"name" validate:"required"`
	Email string          `json:"email" validate:"omitempty,email"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
	Stock *int            `json:"totalStock" validate:"required,gte=0"`
}

func intPtr(n int) *int { return &n }

func TestStructMessages(t *testing.T) {
	v := New()

	cases := []struct {
		in   sample
		want string
	}{
		{sample{Price: decimal.NewFromInt(1), Stock: intPtr(1)}, "name is required"},
		{sample{Name: "a", Email: "nope", Price: decimal.NewFromInt(1), Stock: intPtr(1)}, "email must be a valid email"},
		{sample{Name: "a", Price: decimal.Zero, Stock: intPtr(1)}, "price must be greater than 0"},
		{sample{Name: "a", Price: decimal.NewFromInt(1)}, "totalStock is required"},
		{sample{Name: "a", Price: decimal.NewFromInt(1), Stock: intPtr(-1)}, "totalStock must be at least 0"},
	}

	for _, c := range cases {
		err := v.Struct(c.in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v: %v", c.in, err)
		assert.Equal(t, c.want, apperr.Message(err))
	}
}

func TestStructValid(t *testing.T) {
	err := New().Struct(sample{Name: "a", Price: decimal.RequireFromString("0.01"), Stock: intPtr(0)})
	assert.NoError(t, err)
}

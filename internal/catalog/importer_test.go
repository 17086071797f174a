package catalog

import (
	"path/filepath"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRow(t *testing.T) {
	product, err := ParseRow([]string{
		"Canvas Tote", "Heavy cotton", "Accessories", "$50.00", "$5.00", "12", "$7.50", "$100.00", "3", "https://cdn.example.com/tote.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "Canvas Tote", product.Name)
	assert.Equal(t, model.CategoryAccessories, product.Category)
	assert.Equal(t, int64(5000), product.PriceCents)
	assert.Equal(t, int64(500), product.DiscountCents)
	assert.Equal(t, 12, product.StockQuantity)
	require.NotNil(t, product.ShippingCharge)
	assert.Equal(t, int64(750), *product.ShippingCharge)
	assert.Equal(t, int64(10000), product.FreeShippingThreshold)
	assert.Equal(t, 3, product.FreeShippingMinQuantity)

	line := product.ToLineItem(2)
	assert.Equal(t, pricing.Cents(5000), line.UnitPrice)
	require.NotNil(t, line.Shipping)
	assert.Equal(t, pricing.Cents(750), line.Shipping.FlatCharge)
}

func TestParseRow_Rejects(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"missing name", []string{"", "", "home", "$1.00"}},
		{"bad price", []string{"Mug", "", "home", "call us"}},
		{"discount above price", []string{"Mug", "", "home", "$1.00", "$2.00"}},
		{"negative stock", []string{"Mug", "", "home", "$1.00", "", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestParseRows_CollectsSkippedRows(t *testing.T) {
	rows := [][]string{
		Header,
		{"Mug", "", "home", "$12.00", "", "5"},
		{},
		{"mug", "", "home", "$13.00", "", "5"},
		{"Plate", "", "home", "free"},
	}

	result, err := ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 4, result.Skipped[0].Line)
	assert.Equal(t, 5, result.Skipped[1].Line)
	assert.ErrorIs(t, result.Skipped[1], pricing.ErrInvalidPriceLabel)

	_, err = ParseRows(nil)
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestXLSXRoundTrip(t *testing.T) {
	charge := int64(500)
	products := []model.Product{
		{Name: "Linen Shirt", Category: model.CategoryApparel, PriceCents: 4500, DiscountCents: 500, StockQuantity: 8, ShippingCharge: &charge, FreeShippingThreshold: 10000},
		{Name: "Olive Oil", Category: model.CategoryGrocery, PriceCents: 1299, StockQuantity: 40, FreeShippingMinQuantity: 0},
	}

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, WriteXLSX(path, products, "$"))

	result, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Products, 2)

	assert.Equal(t, int64(4500), result.Products[0].PriceCents)
	assert.Equal(t, int64(500), result.Products[0].DiscountCents)
	require.NotNil(t, result.Products[0].ShippingCharge)
	assert.Equal(t, int64(500), *result.Products[0].ShippingCharge)
	assert.Equal(t, int64(10000), result.Products[0].FreeShippingThreshold)
	assert.Equal(t, int64(1299), result.Products[1].PriceCents)
	assert.Nil(t, result.Products[1].ShippingCharge)
	assert.Equal(t, 40, result.Products[1].StockQuantity)
}

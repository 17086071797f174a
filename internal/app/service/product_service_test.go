package service

import (
	"fmt"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductServiceTest(t *testing.T) (*serviceFixture, ProductService) {
	f := setupServiceFixture(t)
	return f, NewProductService(f.productRepo)
}

func TestProductService_ListProducts(t *testing.T) {
	f, products := setupProductServiceTest(t)
	f.createProduct(t, "Linen Shirt", 4500, 3)
	f.createProduct(t, "Wool Scarf", 2500, 0)
	mug := &model.Product{Name: "Stoneware Mug", PriceCents: 1800, Category: model.CategoryHome, StockQuantity: 12}
	require.NoError(t, f.db.Create(mug).Error)

	list, total, err := products.ListProducts(repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 3)

	home := model.CategoryHome
	list, total, err = products.ListProducts(repository.ProductFilter{Category: &home})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Stoneware Mug", list[0].Name)

	list, _, err = products.ListProducts(repository.ProductFilter{InStockOnly: true, SortBy: repository.ProductSortPrice, SortAscending: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Stoneware Mug", list[0].Name)

	list, total, err = products.ListProducts(repository.ProductFilter{Search: "SCARF"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Wool Scarf", list[0].Name)
}

func TestProductService_ListProducts_PageSize(t *testing.T) {
	f, products := setupProductServiceTest(t)
	for i := 0; i < defaultProductPageSize+5; i++ {
		f.createProduct(t, fmt.Sprintf("Item %02d", i), 1000, 1)
	}

	list, total, err := products.ListProducts(repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(defaultProductPageSize+5), total)
	assert.Len(t, list, defaultProductPageSize)

	list, _, err = products.ListProducts(repository.ProductFilter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestProductService_GetProductByID(t *testing.T) {
	f, products := setupProductServiceTest(t)
	created := f.createProduct(t, "Linen Shirt", 4500, 3)

	found, err := products.GetProductByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), found.PriceCents)

	_, err = products.GetProductByID(999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

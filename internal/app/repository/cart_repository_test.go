package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const cartTestUserID uint = 7

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.Product, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewCartRepository(testDB)

	shirt := &model.Product{
		Name:          "Shirt",
		PriceCents:    2500,
		Category:      model.CategoryApparel,
		StockQuantity: 10,
	}
	require.NoError(t, testDB.Create(shirt).Error)

	mug := &model.Product{
		Name:          "Mug",
		PriceCents:    900,
		Category:      model.CategoryHome,
		StockQuantity: 3,
	}
	require.NoError(t, testDB.Create(mug).Error)

	return testDB, repo, shirt, mug
}

func TestCartRepository_Create(t *testing.T) {
	testDB, repo, shirt, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{
		UserID:    cartTestUserID,
		ProductID: shirt.ID,
		Quantity:  2,
	}

	err := repo.Create(cartItem)
	assert.NoError(t, err)
	assert.NotZero(t, cartItem.ID)
}

func TestCartRepository_Create_DuplicateLine(t *testing.T) {
	testDB, repo, shirt, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 1}))

	// one line per (user, product)
	err := repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 1})
	assert.Error(t, err)

	// another user may hold the same product
	assert.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID + 1, ProductID: shirt.ID, Quantity: 1}))
}

func TestCartRepository_FindByUserID(t *testing.T) {
	testDB, repo, shirt, mug := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: mug.ID, Quantity: 1}))
	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 2}))

	items, err := repo.FindByUserID(cartTestUserID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// insertion order with products preloaded
	assert.Equal(t, "Mug", items[0].Product.Name)
	assert.Equal(t, "Shirt", items[1].Product.Name)
	assert.Equal(t, int64(2500), items[1].Product.PriceCents)

	items, err = repo.FindByUserID(cartTestUserID + 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_FindByID(t *testing.T) {
	testDB, repo, shirt, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 3}
	require.NoError(t, repo.Create(cartItem))

	found, err := repo.FindByID(cartItem.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Quantity)
	assert.Equal(t, "Shirt", found.Product.Name)

	_, err = repo.FindByID(999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_FindByUserAndProduct(t *testing.T) {
	testDB, repo, shirt, mug := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 1}))

	found, err := repo.FindByUserAndProduct(cartTestUserID, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, shirt.ID, found.ProductID)

	_, err = repo.FindByUserAndProduct(cartTestUserID, mug.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_Update(t *testing.T) {
	testDB, repo, shirt, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 1}
	require.NoError(t, repo.Create(cartItem))

	cartItem.Quantity = 5
	require.NoError(t, repo.Update(cartItem))

	found, err := repo.FindByID(cartItem.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Quantity)
}

func TestCartRepository_DeleteAndCount(t *testing.T) {
	testDB, repo, shirt, mug := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	first := &model.CartItem{UserID: cartTestUserID, ProductID: shirt.ID, Quantity: 1}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID, ProductID: mug.ID, Quantity: 1}))
	require.NoError(t, repo.Create(&model.CartItem{UserID: cartTestUserID + 1, ProductID: mug.ID, Quantity: 1}))

	count, err := repo.CountByUserID(cartTestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.Delete(first.ID))
	count, err = repo.CountByUserID(cartTestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.DeleteByUserID(cartTestUserID))
	count, err = repo.CountByUserID(cartTestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// other carts are untouched
	count, err = repo.CountByUserID(cartTestUserID + 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

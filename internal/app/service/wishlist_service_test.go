package service

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistService(t *testing.T) {
	f := setupServiceFixture(t)
	wishlist := NewWishlistService(repository.NewWishlistRepository(f.db), f.productRepo)
	product := f.createProduct(t, "Scarf", 2500, 3)

	assert.ErrorIs(t, wishlist.AddToWishlist(1, 999), ErrProductNotFound)

	require.NoError(t, wishlist.AddToWishlist(1, product.ID))
	assert.ErrorIs(t, wishlist.AddToWishlist(1, product.ID), ErrWishlistItemAlreadyExists)

	items, err := wishlist.GetUserWishlist(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Scarf", items[0].Product.Name)

	items, err = wishlist.GetUserWishlist(2)
	require.NoError(t, err)
	assert.Len(t, items, 0)

	assert.ErrorIs(t, wishlist.RemoveFromWishlist(2, product.ID), ErrWishlistItemNotFound)
	require.NoError(t, wishlist.RemoveFromWishlist(1, product.ID))
	assert.ErrorIs(t, wishlist.RemoveFromWishlist(1, product.ID), ErrWishlistItemNotFound)
}

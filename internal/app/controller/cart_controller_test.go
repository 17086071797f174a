package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartRoutes(f *controllerFixture) {
	ctrl := NewCartController(f.cart)
	cart := f.router.Group("/cart", asUser(testUserID, model.RoleUser))
	cart.GET("", ctrl.GetCart)
	cart.POST("/add", ctrl.AddToCart)
	cart.PUT("/items/:id", ctrl.UpdateCartItem)
	cart.DELETE("/items/:id", ctrl.RemoveFromCart)
	cart.DELETE("", ctrl.ClearCart)
}

func addToCart(t *testing.T, f *controllerFixture, productID uint, quantity int) uint {
	t.Helper()
	w := performRequest(t, f.router, http.MethodPost, "/cart/add", AddToCartRequest{ProductID: productID, Quantity: quantity})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decodeBody(t, w)["cart_item"].(map[string]interface{})
	return uint(item["id"].(float64))
}

func TestCartController_GetCart_Empty(t *testing.T) {
	f := setupControllerFixture(t)
	setupCartRoutes(f)

	w := performRequest(t, f.router, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Empty(t, response["items"])
	totals := response["totals"].(map[string]interface{})
	assert.Equal(t, float64(0), totals["grand_total"])
}

func TestCartController_AddAndGet(t *testing.T) {
	f := setupControllerFixture(t)
	setupCartRoutes(f)
	product := f.createProduct(t, "Lamp", 1500, 10)

	addToCart(t, f, product.ID, 1)
	addToCart(t, f, product.ID, 1)

	w := performRequest(t, f.router, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	items := response["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(2), items[0].(map[string]interface{})["quantity"])

	totals := response["totals"].(map[string]interface{})
	assert.Equal(t, float64(3000), totals["subtotal"])
	assert.Equal(t, float64(3000), totals["grand_total"])
	assert.Equal(t, false, totals["stock_exceeded"])
}

func TestCartController_AddToCart_Validation(t *testing.T) {
	f := setupControllerFixture(t)
	setupCartRoutes(f)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"malformed json", "{", http.StatusBadRequest, apperrors.ValidationInvalidInput},
		{"missing product", map[string]int{"quantity": 1}, http.StatusBadRequest, apperrors.ValidationInvalidInput},
		{"zero quantity", map[string]int{"product_id": 1, "quantity": 0}, http.StatusBadRequest, apperrors.ValidationInvalidInput},
		{"unknown product", AddToCartRequest{ProductID: 999, Quantity: 1}, http.StatusNotFound, apperrors.ProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(t, f.router, http.MethodPost, "/cart/add", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestCartController_UpdateCartItem(t *testing.T) {
	f := setupControllerFixture(t)
	setupCartRoutes(f)
	product := f.createProduct(t, "Lamp", 1500, 10)
	itemID := addToCart(t, f, product.ID, 1)
	path := fmt.Sprintf("/cart/items/%d", itemID)

	w := performRequest(t, f.router, http.MethodPut, path, map[string]int{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart item updated", decodeBody(t, w)["message"])

	w = performRequest(t, f.router, http.MethodPut, path, map[string]int{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CartInvalidQuantity, errorCode(t, w))

	w = performRequest(t, f.router, http.MethodPut, path, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, f.router, http.MethodPut, path, map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart item removed", decodeBody(t, w)["message"])

	w = performRequest(t, f.router, http.MethodPut, path, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CartItemNotFound, errorCode(t, w))
}

func TestCartController_RemoveAndClear(t *testing.T) {
	f := setupControllerFixture(t)
	setupCartRoutes(f)
	lamp := f.createProduct(t, "Lamp", 1500, 10)
	rug := f.createProduct(t, "Rug", 8000, 2)
	lampItem := addToCart(t, f, lamp.ID, 1)
	addToCart(t, f, rug.ID, 1)

	w := performRequest(t, f.router, http.MethodDelete, "/cart/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidID, errorCode(t, w))

	w = performRequest(t, f.router, http.MethodDelete, fmt.Sprintf("/cart/items/%d", lampItem), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(t, f.router, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(t, f.router, http.MethodGet, "/cart", nil)
	assert.Empty(t, decodeBody(t, w)["items"])
}

func TestCartController_RequiresUser(t *testing.T) {
	f := setupControllerFixture(t)
	ctrl := NewCartController(f.cart)
	f.router.GET("/cart", ctrl.GetCart)

	w := performRequest(t, f.router, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.AuthUnauthorized, errorCode(t, w))
}

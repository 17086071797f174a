package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductRoutes(f *controllerFixture) {
	ctrl := NewProductController(service.NewProductService(f.productRepo))
	f.router.GET("/products", ctrl.GetProducts)
	f.router.GET("/products/:id", ctrl.GetProductByID)
}

func TestProductController_GetProducts(t *testing.T) {
	f := setupControllerFixture(t)
	setupProductRoutes(f)

	f.createProduct(t, "Lamp", 4500, 3)
	f.createProduct(t, "Vase", 2500, 0)
	coffee := &model.Product{Name: "Coffee", Category: model.CategoryGrocery, PriceCents: 1650, StockQuantity: 20}
	require.NoError(t, f.productRepo.Create(coffee))

	tests := []struct {
		name      string
		query     string
		wantNames []string
		wantTotal float64
	}{
		{"all by name", "?sort=name&order=desc", []string{"Vase", "Lamp", "Coffee"}, 3},
		{"by category", "?category=home&sort=name&order=asc", []string{"Lamp", "Vase"}, 2},
		{"in stock by price", "?in_stock=true&sort=price&order=asc", []string{"Coffee", "Lamp"}, 2},
		{"search", "?search=amp", []string{"Lamp"}, 1},
		{"paged", "?sort=price&order=desc&limit=1&offset=1", []string{"Vase"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(t, f.router, http.MethodGet, "/products"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			response := decodeBody(t, w)
			assert.Equal(t, tt.wantTotal, response["total"])
			assert.Equal(t, fmt.Sprint(tt.wantTotal), w.Header().Get("X-Total-Count"))

			var names []string
			for _, p := range response["products"].([]interface{}) {
				names = append(names, p.(map[string]interface{})["name"].(string))
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestProductController_GetProducts_InvalidQuery(t *testing.T) {
	f := setupControllerFixture(t)
	setupProductRoutes(f)

	for _, query := range []string{"?category=jewelry", "?sort=rating", "?limit=-1", "?order=sideways"} {
		w := performRequest(t, f.router, http.MethodGet, "/products"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestProductController_GetProductByID(t *testing.T) {
	f := setupControllerFixture(t)
	setupProductRoutes(f)
	product := f.createProduct(t, "Lamp", 4500, 3)

	w := performRequest(t, f.router, http.MethodGet, fmt.Sprintf("/products/%d", product.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)["product"].(map[string]interface{})
	assert.Equal(t, "Lamp", body["name"])
	assert.Equal(t, float64(4500), body["price"])

	w = performRequest(t, f.router, http.MethodGet, "/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ProductNotFound, errorCode(t, w))

	w = performRequest(t, f.router, http.MethodGet, "/products/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

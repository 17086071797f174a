package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ListProductsQuery is bound from the query string
type ListProductsQuery struct {
	Category string `form:"category" binding:"omitempty,oneof=apparel accessories home grocery"`
	Search   string `form:"search" binding:"max=100"`
	InStock  bool   `form:"in_stock"`
	Sort     string `form:"sort" binding:"omitempty,oneof=price created_at name"`
	Order    string `form:"order" binding:"omitempty,oneof=asc desc"`
	Limit    int    `form:"limit" binding:"gte=0"`
	Offset   int    `form:"offset" binding:"gte=0"`
}

func (q ListProductsQuery) filter() repository.ProductFilter {
	f := repository.ProductFilter{
		Search:        q.Search,
		InStockOnly:   q.InStock,
		SortBy:        repository.ProductSort(q.Sort),
		SortAscending: q.Order == "asc",
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if q.Category != "" {
		category := model.ProductCategory(q.Category)
		f.Category = &category
	}
	return f
}

// GetProducts lists the catalog
// GET /api/v1/products
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		log.Warn("Invalid product list query", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	filter := query.filter()
	products, total, err := ctrl.productService.ListProducts(filter)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		apperrors.InternalError(c, "Failed to fetch products")
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"total":    total,
		"offset":   filter.Offset,
	})
}

// GetProductByID returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id", "product ID")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.InternalError(c, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

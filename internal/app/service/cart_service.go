package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/inflight"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/internal/telemetry"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = pricing.ErrInvalidQuantity
	ErrCartBusy         = errors.New("a change to this cart line is already in progress")
)

// CartNotifier pushes change hints to the user's other sessions
type CartNotifier interface {
	Notify(userID uint, eventType string, data interface{})
}

const cartUpdatedEvent = "cart.updated"

// CartLine is a cart item priced at current catalog values
type CartLine struct {
	ID             uint          `json:"id"`
	ProductID      uint          `json:"product_id"`
	Product        model.Product `json:"product"`
	Quantity       int           `json:"quantity"`
	UnitPrice      pricing.Cents `json:"unit_price"`
	UnitDiscount   pricing.Cents `json:"unit_discount"`
	LineSubtotal   pricing.Cents `json:"line_subtotal"`
	LineDiscount   pricing.Cents `json:"line_discount"`
	LineTotal      pricing.Cents `json:"line_total"`
	AvailableStock int           `json:"available_stock"`
	ExceedsStock   bool          `json:"exceeds_stock"`
}

// CartView is the server's authoritative cart: lines, totals and the coupon session
type CartView struct {
	Items  []CartLine                  `json:"items"`
	Totals pricing.Totals              `json:"totals"`
	Coupon *checkout.CouponApplication `json:"coupon"`

	lines []pricing.LineItem
}

type CartService interface {
	GetCart(ctx context.Context, userID uint) (*CartView, error)
	AddToCart(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, cartItemID uint, quantity int) error
	RemoveFromCart(ctx context.Context, userID, cartItemID uint) error
	ClearCart(ctx context.Context, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	sessions    checkout.Store
	guard       inflight.Guard
	notifier    CartNotifier
	metrics     *telemetry.BusinessMetrics
}

// NewCartService wires the cart. notifier and metrics may be nil.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	sessions checkout.Store,
	guard inflight.Guard,
	notifier CartNotifier,
	metrics *telemetry.BusinessMetrics,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		sessions:    sessions,
		guard:       guard,
		notifier:    notifier,
		metrics:     metrics,
	}
}

// PriceCartItems turns stored cart rows into priced lines and the pricing input.
// A row whose product left the catalog prices at zero with no stock, so it blocks checkout
// until removed.
func PriceCartItems(items []model.CartItem) ([]CartLine, []pricing.LineItem) {
	lines := make([]CartLine, 0, len(items))
	lineItems := make([]pricing.LineItem, 0, len(items))

	for _, item := range items {
		product := item.Product
		if product.ID == 0 {
			product.ID = item.ProductID
		}
		li := product.ToLineItem(item.Quantity)
		lineItems = append(lineItems, li)

		lines = append(lines, CartLine{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Product:        item.Product,
			Quantity:       item.Quantity,
			UnitPrice:      li.UnitPrice,
			UnitDiscount:   li.PerUnitDiscount,
			LineSubtotal:   li.LineSubtotal(),
			LineDiscount:   li.LineDiscount(),
			LineTotal:      li.LineSubtotal() - li.LineDiscount(),
			AvailableStock: *li.AvailableStock,
			ExceedsStock:   li.ExceedsStock(),
		})
	}
	return lines, lineItems
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	app, err := s.sessions.Load(ctx, userID)
	if err != nil {
		logger.Error("Failed to load checkout session", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	lines, lineItems := PriceCartItems(cartItems)
	totals := pricing.Summarize(lineItems, pricing.Cents(app.Discount()))

	logger.Debug("User cart priced", map[string]interface{}{
		"user_id":     userID,
		"count":       len(lines),
		"grand_total": int64(totals.GrandTotal),
	})

	return &CartView{Items: lines, Totals: totals, Coupon: app, lines: lineItems}, nil
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		s.metrics.RecordCartRejected("invalid_quantity")
		return nil, ErrInvalidQuantity
	}

	release, err := s.acquire(ctx, inflight.CartLineKey(userID, productID))
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	existing, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	var item *model.CartItem
	if existing != nil {
		existing.Quantity += quantity
		if err := s.cartRepo.Update(existing); err != nil {
			return nil, err
		}
		item = existing
	} else {
		item = &model.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := s.cartRepo.Create(item); err != nil {
			return nil, err
		}
	}
	item.Product = *product

	// stock is advisory here; checkout refuses while any line exceeds it
	if item.Quantity > product.StockQuantity {
		logger.Warn("Cart line exceeds available stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   item.Quantity,
			"available":  product.StockQuantity,
		})
	}

	s.changed(userID, "add")
	return item, nil
}

func (s *cartService) UpdateCartItem(ctx context.Context, userID, cartItemID uint, quantity int) error {
	action, err := pricing.ResolveQuantity(quantity)
	if err != nil {
		s.metrics.RecordCartRejected("invalid_quantity")
		return ErrInvalidQuantity
	}

	item, err := s.ownedItem(userID, cartItemID)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, inflight.CartLineKey(userID, item.ProductID))
	if err != nil {
		return err
	}
	defer release()

	if action == pricing.ActionRemove {
		if err := s.cartRepo.Delete(item.ID); err != nil {
			return err
		}
		logger.Info("Cart item removed by zero quantity", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": cartItemID,
		})
		s.changed(userID, "remove")
		return nil
	}

	item.Quantity = quantity
	if err := s.cartRepo.Update(item); err != nil {
		return err
	}

	logger.Info("Cart item updated", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": cartItemID,
		"quantity":     quantity,
	})
	s.changed(userID, "update")
	return nil
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, cartItemID uint) error {
	item, err := s.ownedItem(userID, cartItemID)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, inflight.CartLineKey(userID, item.ProductID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.cartRepo.Delete(item.ID); err != nil {
		return err
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": cartItemID,
	})
	s.changed(userID, "remove")
	return nil
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		return err
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		logger.Warn("Failed to reset checkout session after clearing cart", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	s.changed(userID, "clear")
	return nil
}

// ownedItem hides other users' items behind ErrCartItemNotFound.
func (s *cartService) ownedItem(userID, cartItemID uint) (*model.CartItem, error) {
	item, err := s.cartRepo.FindByID(cartItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		logger.Warn("Cart item access denied", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": cartItemID,
			"owner_id":     item.UserID,
		})
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

func (s *cartService) acquire(ctx context.Context, key string) (func(), error) {
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			s.metrics.RecordCartRejected("in_flight")
			logger.Warn("Cart mutation rejected: request in flight", map[string]interface{}{
				"key": key,
			})
			return nil, ErrCartBusy
		}
		return nil, err
	}
	return release, nil
}

func (s *cartService) changed(userID uint, action string) {
	s.metrics.RecordCartMutation(action)
	if s.notifier != nil {
		s.notifier.Notify(userID, cartUpdatedEvent, map[string]interface{}{"action": action})
	}
}

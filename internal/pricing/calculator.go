// Package pricing derives cart totals from line items. Every function is pure and
// expects validated input; quantities are checked at the mutation boundary
// (ResolveQuantity), not here.
package pricing

// ShippingPolicy is the per-product shipping rule. A zero threshold or zero minimum
// quantity disables that half of the free-shipping predicate.
type ShippingPolicy struct {
	FlatCharge                    Cents `json:"flat_charge"`
	FreeShippingSubtotalThreshold Cents `json:"free_shipping_subtotal_threshold"`
	FreeShippingMinQuantity       int   `json:"free_shipping_min_quantity"`
}

// LineItem is one product-and-quantity entry in a cart.
type LineItem struct {
	ProductID       uint            `json:"product_id"`
	UnitPrice       Cents           `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	PerUnitDiscount Cents           `json:"per_unit_discount"`
	Shipping        *ShippingPolicy `json:"shipping,omitempty"`
	AvailableStock  *int            `json:"available_stock,omitempty"`
}

// LineSubtotal is unitPrice × quantity before any discount.
func (li LineItem) LineSubtotal() Cents {
	return li.UnitPrice * Cents(li.Quantity)
}

// LineDiscount is perUnitDiscount × quantity.
func (li LineItem) LineDiscount() Cents {
	return li.PerUnitDiscount * Cents(li.Quantity)
}

// ExceedsStock reports whether the requested quantity is above the known stock.
// Unknown stock never exceeds.
func (li LineItem) ExceedsStock() bool {
	return li.AvailableStock != nil && li.Quantity > *li.AvailableStock
}

// Totals is the derived view of a cart.
type Totals struct {
	Subtotal       Cents `json:"subtotal"`
	ItemDiscount   Cents `json:"item_discount"`
	CouponDiscount Cents `json:"coupon_discount"`
	Shipping       Cents `json:"shipping"`
	GrandTotal     Cents `json:"grand_total"`
	ItemCount      int   `json:"item_count"`
	TotalQuantity  int   `json:"total_quantity"`
	StockExceeded  bool  `json:"stock_exceeded"`
}

func ComputeSubtotal(items []LineItem) Cents {
	var total Cents
	for _, item := range items {
		total += item.LineSubtotal()
	}
	return total
}

// ComputeItemDiscountTotal does not clamp: keeping perUnitDiscount ≤ unitPrice is the
// catalog's job.
func ComputeItemDiscountTotal(items []LineItem) Cents {
	var total Cents
	for _, item := range items {
		total += item.LineDiscount()
	}
	return total
}

func TotalQuantity(items []LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// ComputeShippingTotal sums the flat charge of every item whose free-shipping predicate
// fails. The predicate is evaluated against the whole cart's subtotal and quantity.
func ComputeShippingTotal(items []LineItem) Cents {
	cartSubtotal := ComputeSubtotal(items)
	cartQuantity := TotalQuantity(items)

	var total Cents
	for _, item := range items {
		if item.Shipping == nil || item.Shipping.FlatCharge <= 0 {
			continue
		}
		if qualifiesForFreeShipping(item.Shipping, cartSubtotal, cartQuantity) {
			continue
		}
		total += item.Shipping.FlatCharge
	}
	return total
}

func qualifiesForFreeShipping(policy *ShippingPolicy, cartSubtotal Cents, cartQuantity int) bool {
	if policy.FreeShippingSubtotalThreshold > 0 && cartSubtotal >= policy.FreeShippingSubtotalThreshold {
		return true
	}
	if policy.FreeShippingMinQuantity > 0 && cartQuantity >= policy.FreeShippingMinQuantity {
		return true
	}
	return false
}

// ComputeGrandTotal clamps the pre-shipping amount at zero, then adds shipping.
func ComputeGrandTotal(subtotal, itemDiscount, couponDiscount, shipping Cents) Cents {
	net := subtotal - itemDiscount - couponDiscount
	if net < 0 {
		net = 0
	}
	return net + shipping
}

// Summarize computes every derived value for a cart in one pass over the helpers.
func Summarize(items []LineItem, couponDiscount Cents) Totals {
	subtotal := ComputeSubtotal(items)
	itemDiscount := ComputeItemDiscountTotal(items)
	shipping := ComputeShippingTotal(items)

	return Totals{
		Subtotal:       subtotal,
		ItemDiscount:   itemDiscount,
		CouponDiscount: couponDiscount,
		Shipping:       shipping,
		GrandTotal:     ComputeGrandTotal(subtotal, itemDiscount, couponDiscount, shipping),
		ItemCount:      len(items),
		TotalQuantity:  TotalQuantity(items),
		StockExceeded:  AnyExceedsStock(items),
	}
}

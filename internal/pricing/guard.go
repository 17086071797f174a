package pricing

import "errors"

var ErrInvalidQuantity = errors.New("quantity must not be negative")

// QuantityAction is what a requested quantity means for a line item.
type QuantityAction int

const (
	ActionSet QuantityAction = iota
	ActionRemove
)

// ResolveQuantity validates a requested quantity. Zero means remove the line; there is
// no upper bound here, stock is reported through LineItem.ExceedsStock.
func ResolveQuantity(newQty int) (QuantityAction, error) {
	switch {
	case newQty < 0:
		return ActionSet, ErrInvalidQuantity
	case newQty == 0:
		return ActionRemove, nil
	default:
		return ActionSet, nil
	}
}

// AnyExceedsStock reports whether checkout must be refused for this collection.
func AnyExceedsStock(items []LineItem) bool {
	for _, item := range items {
		if item.ExceedsStock() {
			return true
		}
	}
	return false
}

package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns storage and network failures into a code and a message safe to show
// to shoppers. context names the operation, e.g. "cart item" or "create order".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	errLower := strings.ToLower(err.Error())

	// postgres 23505 and sqlite UNIQUE failures
	if strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	if strings.Contains(errLower, "foreign key constraint") {
		if strings.Contains(errLower, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: "This record is still in use and cannot be deleted"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	}

	if strings.Contains(errLower, "not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "One of the values is out of range"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A dependent service is unavailable. Please try again shortly",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "coupons") && strings.Contains(errLower, "code"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A coupon with this code already exists"}
	case strings.Contains(errLower, "wishlist"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Product is already in your wishlist"}
	case strings.Contains(errLower, "order_number"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Order number collision, please retry"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Email is already registered"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "cart"):
		return "Cart item not found"
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "order"):
		return "Order not found"
	case strings.Contains(contextLower, "address"):
		return "Address not found"
	case strings.Contains(contextLower, "coupon"):
		return "Coupon not found"
	case strings.Contains(contextLower, "wishlist"):
		return "Wishlist item not found"
	}
	return "The requested resource was not found"
}

func defaultMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "add"):
		return "Failed to save. Please try again shortly"
	case strings.Contains(contextLower, "update"):
		return "Failed to update. Please try again shortly"
	case strings.Contains(contextLower, "delete"), strings.Contains(contextLower, "remove"):
		return "Failed to delete. Please try again shortly"
	}
	return "Something went wrong. Please try again shortly"
}


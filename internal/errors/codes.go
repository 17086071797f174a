package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map on the code, the message is for display.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound = "PRODUCT_NOT_FOUND"

	// ==================== Cart (CART_) ====================
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"
	CartRequestInFlight = "CART_REQUEST_IN_FLIGHT"

	// ==================== Coupons (COUPON_) ====================
	CouponPending        = "COUPON_PENDING"
	CouponAlreadyApplied = "COUPON_ALREADY_APPLIED"
	CouponRejected       = "COUPON_REJECTED"
	CouponCodeRequired   = "COUPON_CODE_REQUIRED"

	// ==================== Checkout (CHECKOUT_) ====================
	CheckoutEmptyCart       = "CHECKOUT_EMPTY_CART"
	CheckoutBlocked         = "CHECKOUT_BLOCKED"
	CheckoutAddressRequired = "CHECKOUT_ADDRESS_REQUIRED"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"

	// ==================== Payments (PAYMENT_) ====================
	PaymentProviderError    = "PAYMENT_PROVIDER_ERROR"
	PaymentNotConfigured    = "PAYMENT_NOT_CONFIGURED"
	PaymentInvalidSignature = "PAYMENT_INVALID_SIGNATURE"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)

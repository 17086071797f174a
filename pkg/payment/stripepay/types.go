package stripepay

import "context"

// Provider is the hosted-checkout surface the payment service depends on
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
}

// SessionLine is one product line shown on the hosted checkout page.
// UnitAmount is the per-unit price after item discounts, in cents.
type SessionLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest describes an order to collect payment for
type SessionRequest struct {
	OrderID        uint
	OrderNumber    string
	CustomerEmail  string
	Lines          []SessionLine
	ShippingAmount int64
	// CouponDiscount is subtracted from the order; when non-zero the lines are
	// collapsed into a single order line so the charged amount equals TotalAmount.
	CouponDiscount int64
	TotalAmount    int64
	SuccessURL     string
	CancelURL      string
}

// Session is the created hosted checkout session
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// EventType is the subset of Stripe event types the shop handles
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
	EventPaymentFailed     EventType = "checkout.session.async_payment_failed"
	EventPaymentSucceeded  EventType = "checkout.session.async_payment_succeeded"
)

// Event is a verified webhook event reduced to what order bookkeeping needs
type Event struct {
	ID            string
	Type          EventType
	SessionID     string
	OrderNumber   string
	PaymentStatus string
	AmountTotal   int64
}

// Paid reports whether the session has collected the money
func (e *Event) Paid() bool {
	return e.PaymentStatus == "paid" || e.PaymentStatus == "no_payment_required"
}

package stripepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const metadataOrderNumber = "order_number"

// Client creates Stripe Checkout sessions and verifies Stripe webhooks
type Client struct {
	config   Config
	sessions *checkoutsession.Client
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.Currency = strings.ToLower(config.Currency)

	return &Client{
		config: config,
		sessions: &checkoutsession.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: config.SecretKey,
		},
	}, nil
}

// CreateCheckoutSession opens a hosted payment page for the order
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	sess, err := c.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrProvider, stripeErr.Msg, stripeErr.Code)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// withSessionPlaceholder makes Stripe append the session id to the success redirect.
func withSessionPlaceholder(url string) string {
	if strings.Contains(url, sessionPlaceholder) {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "session_id=" + sessionPlaceholder
}

func (c *Client) buildParams(req SessionRequest) (*stripe.CheckoutSessionParams, error) {
	if req.OrderNumber == "" || len(req.Lines) == 0 || req.TotalAmount <= 0 {
		return nil, ErrInvalidRequest
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = c.config.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = c.config.CancelURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withSessionPlaceholder(successURL)),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.OrderID), 10)),
		Metadata: map[string]string{
			metadataOrderNumber: req.OrderNumber,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	// Stripe has no negative line items, so a coupon collapses the cart into one
	// line carrying the exact order total.
	if req.CouponDiscount > 0 {
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{
			c.lineItem("Order "+req.OrderNumber, req.TotalAmount, 1),
		}
		return params, nil
	}

	var sum int64
	for _, line := range req.Lines {
		if line.Quantity <= 0 || line.UnitAmount < 0 {
			return nil, ErrInvalidRequest
		}
		params.LineItems = append(params.LineItems, c.lineItem(line.Name, line.UnitAmount, line.Quantity))
		sum += line.UnitAmount * line.Quantity
	}

	if req.ShippingAmount > 0 {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					DisplayName: stripe.String("Shipping"),
					Type:        stripe.String("fixed_amount"),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(req.ShippingAmount),
						Currency: stripe.String(c.config.Currency),
					},
				},
			},
		}
		sum += req.ShippingAmount
	}

	if sum != req.TotalAmount {
		return nil, fmt.Errorf("%w: line total %d does not match order total %d", ErrInvalidRequest, sum, req.TotalAmount)
	}

	return params, nil
}

func (c *Client) lineItem(name string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(c.config.Currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(quantity),
	}
}

// ParseWebhook verifies the Stripe-Signature header and decodes checkout session events.
// Events other than the checkout session ones return ErrUnsupportedEvent.
func (c *Client) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	eventType := EventType(event.Type)
	switch eventType {
	case EventCheckoutCompleted, EventCheckoutExpired, EventPaymentFailed, EventPaymentSucceeded:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.Type)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	return &Event{
		ID:            event.ID,
		Type:          eventType,
		SessionID:     session.ID,
		OrderNumber:   session.Metadata[metadataOrderNumber],
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
	}, nil
}

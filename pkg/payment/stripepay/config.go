package stripepay

// Config represents the configuration for the Stripe Checkout client
type Config struct {
	// SecretKey is the Stripe API secret key (sk_live_... or sk_test_...)
	SecretKey string

	// WebhookSecret is the signing secret of the webhook endpoint (whsec_...)
	WebhookSecret string

	// SuccessURL is the redirect URL after a completed payment
	SuccessURL string

	// CancelURL is the redirect URL when the shopper abandons the hosted page
	CancelURL string

	// Currency is the ISO currency code sent with every amount, e.g. "usd"
	Currency string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrNotConfigured
	}
	if c.WebhookSecret == "" {
		return ErrNotConfigured
	}
	if c.SuccessURL == "" || c.CancelURL == "" {
		return ErrInvalidRequest
	}
	if c.Currency == "" {
		return ErrInvalidRequest
	}
	return nil
}

package stripepay

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is an in-process Provider for tests and local development without Stripe keys.
// Webhook payloads are trusted as long as the header equals Signature.
type MockProvider struct {
	mu        sync.Mutex
	Requests  []SessionRequest
	Err       error
	Signature string
	Events    map[string]*Event
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Signature: "test-signature", Events: make(map[string]*Event)}
}

func (m *MockProvider) CreateCheckoutSession(_ context.Context, req SessionRequest) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	m.Requests = append(m.Requests, req)
	id := fmt.Sprintf("cs_test_%s", req.OrderNumber)
	return &Session{ID: id, URL: "https://checkout.test/pay/" + id}, nil
}

// ParseWebhook looks up the event registered under the payload string.
func (m *MockProvider) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signatureHeader != m.Signature {
		return nil, ErrInvalidSignature
	}
	event, ok := m.Events[string(payload)]
	if !ok {
		return nil, ErrUnsupportedEvent
	}
	return event, nil
}

// LastRequest returns the most recent session request, or nil.
func (m *MockProvider) LastRequest() *SessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	req := m.Requests[len(m.Requests)-1]
	return &req
}

package order

import (
	"context"
	"sync"

	"bookworm-cart/internal/model"
)

// MockCreator implements Creator for testing.
// CreateOrderFunc is called when set; otherwise a confirmation echoing the
// request is returned. Every call is recorded.
type MockCreator struct {
	CreateOrderFunc func(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one CreateOrder invocation.
type MockCall struct {
	Token   string
	Request model.OrderRequest
}

// CreateOrder calls the configured CreateOrderFunc or returns a default confirmation.
func (m *MockCreator) CreateOrder(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Token: token, Request: req})
	m.mu.Unlock()

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, token, req)
	}
	conf := &model.OrderConfirmation{OrderID: 1, Status: "pending"}
	for _, it := range req.Items {
		conf.Items = append(conf.Items, model.OrderedItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	return conf, nil
}

// Calls returns the recorded invocations.
func (m *MockCreator) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

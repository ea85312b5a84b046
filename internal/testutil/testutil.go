package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"shopprice/internal/fetcher"
)

// MockSource is a mock implementation of the PriceSource interface for testing
type MockSource struct {
	PriceFunc func(ctx context.Context, productID string) (float64, error)
	NameFunc  func() string

	calls atomic.Int64
}

// Price implements the PriceSource interface
func (m *MockSource) Price(ctx context.Context, productID string) (float64, error) {
	m.calls.Add(1)
	if m.PriceFunc != nil {
		return m.PriceFunc(ctx, productID)
	}
	return 0, nil
}

// Name implements the PriceSource interface
func (m *MockSource) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock:source"
}

// Calls returns how many times Price was invoked
func (m *MockSource) Calls() int64 {
	return m.calls.Load()
}

// NewMockSource creates a mock source returning fixed prices per product.
// Products missing from prices fail with err, or price 0 if err is nil.
func NewMockSource(prices map[string]float64, err error) *MockSource {
	return &MockSource{
		PriceFunc: func(ctx context.Context, productID string) (float64, error) {
			if v, ok := prices[productID]; ok {
				return v, nil
			}
			return 0, err
		},
	}
}

// NewSlowSource creates a mock source that waits delay before returning price,
// honouring cancellation like a real shop.
func NewSlowSource(delay time.Duration, price float64) *MockSource {
	return &MockSource{
		PriceFunc: func(ctx context.Context, productID string) (float64, error) {
			select {
			case <-ctx.Done():
				return 0, fetcher.NewInterruptedError(ctx.Err())
			case <-time.After(delay):
				return price, nil
			}
		},
		NameFunc: func() string {
			return "mock:slow"
		},
	}
}

package fetcher

import "context"

// PriceSource is the core interface that every shop implementation must satisfy.
// A source knows how to look up the price of a single product and may take
// an arbitrary amount of time to do so.
type PriceSource interface {
	// Price returns the price of the given product.
	// Implementations must honour ctx cancellation while they wait and
	// report it as an ErrorTypeInterrupted FetchError.
	Price(ctx context.Context, productID string) (float64, error)

	// Name identifies the source in logs and metrics.
	// Examples:
	//   - shop:simulated
	//   - shop:http:localhost:8080
	Name() string
}

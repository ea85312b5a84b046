package fetcher

import "context"

// Request is a single unit of work handed to a PriceSource.
// It is created by the caller when building a batch and never mutated.
type Request struct {
	// Index is the position of the product in the submitted batch.
	Index int

	// Product is the product identifier passed to PriceSource.Price.
	Product string
}

// Result represents the outcome of a price lookup.
// It's designed to be sent through channels from worker goroutines
// to a coordinator that sums the results.
type Result struct {
	// Index is copied from the originating Request so results can be
	// put back into batch order regardless of completion order.
	Index int

	// Product is the product identifier this price belongs to
	Product string

	// Value is the looked up price
	Value float64

	// Error contains any error that occurred during the lookup.
	// If Error is not nil, Value should be considered invalid.
	Error error
}

// Run looks up the request's product on src and wraps the outcome.
func (r Request) Run(ctx context.Context, src PriceSource) Result {
	value, err := src.Price(ctx, r.Product)
	return Result{
		Index:   r.Index,
		Product: r.Product,
		Value:   value,
		Error:   err,
	}
}

// NewRequests builds one Request per product, preserving order.
func NewRequests(products []string) []Request {
	reqs := make([]Request, len(products))
	for i, p := range products {
		reqs[i] = Request{Index: i, Product: p}
	}
	return reqs
}

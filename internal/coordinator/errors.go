package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoProducts indicates that Aggregate was called with an empty batch.
	ErrNoProducts = errors.New("no products to price")
	// ErrUnknownMode indicates that the execution mode is unknown.
	ErrUnknownMode = errors.New("unknown execution mode")

	// errBatchAborted is the cancellation cause set after the first failed lookup.
	errBatchAborted = errors.New("batch aborted after a failed lookup")
)

// ProductFailure records a single failed lookup within a batch.
type ProductFailure struct {
	Index   int
	Product string
	Err     error
}

// AggregateError is returned when one or more lookups of a batch fail.
// No partial sum is reported alongside it.
type AggregateError struct {
	BatchID  uuid.UUID
	Total    int
	Failures []ProductFailure

	// Cancelled lists products whose lookups were stopped because another
	// lookup had already failed. They are not failures themselves.
	Cancelled []string
}

// Error implements the error interface
func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Product, f.Err)
	}
	msg := fmt.Sprintf("batch %s: %d of %d price lookups failed: %s",
		e.BatchID, len(e.Failures), e.Total, strings.Join(parts, "; "))
	if len(e.Cancelled) > 0 {
		msg += fmt.Sprintf(" (cancelled: %s)", strings.Join(e.Cancelled, ", "))
	}
	return msg
}

// Unwrap exposes every failure cause to errors.Is and errors.As.
// Cancelled lookups are not included.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Products returns the ids of the failed products in batch order
func (e *AggregateError) Products() []string {
	products := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		products[i] = f.Product
	}
	return products
}

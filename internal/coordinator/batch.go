package coordinator

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopprice/internal/fetcher"
)

// BatchResult is the outcome of a fully successful batch.
type BatchResult struct {
	// ID correlates the batch across log lines
	ID uuid.UUID

	// Mode is the execution mode the batch ran with
	Mode Mode

	// Sum is the total of all prices, added in request order
	Sum float64

	// Elapsed is the wall-clock time from first launch to last completion
	Elapsed time.Duration

	// Results holds one successful result per product, in request order
	Results []fetcher.Result
}

// Total returns Sum rounded to cents, for display.
func (b *BatchResult) Total() decimal.Decimal {
	return decimal.NewFromFloat(b.Sum).Round(2)
}

// Package shop provides a simulated online shop whose price lookups are slow
// on purpose, so that callers have something worth running concurrently.
package shop

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"shopprice/internal/fetcher"
)

// DefaultDelay is the artificial latency of a single price lookup.
const DefaultDelay = 1 * time.Second

// sentinel stands in for the second rune of a one-rune product id.
const sentinel rune = 0

// Shop is a PriceSource that waits a fixed delay and then derives a
// pseudo-random price from the product id.
type Shop struct {
	delay time.Duration
	seed  uint64
}

var _ fetcher.PriceSource = (*Shop)(nil)

// New creates a simulated shop.
// A zero seed draws every price from the process-wide generator, so repeated
// lookups of the same product vary. A non-zero seed makes each product's
// price reproducible regardless of call order or concurrency.
func New(delay time.Duration, seed uint64) *Shop {
	if delay < 0 {
		delay = 0
	}
	return &Shop{
		delay: delay,
		seed:  seed,
	}
}

// Delay returns the artificial latency applied to every lookup
func (s *Shop) Delay() time.Duration {
	return s.delay
}

// Name implements fetcher.PriceSource
func (s *Shop) Name() string {
	return "shop:simulated"
}

// Price waits for the configured delay and returns
//
//	r * code(p[0]) + code(p[1])
//
// where r is in [0, 1) and code is the rune's code point. Ids shorter than
// two runes use 0 for the missing rune. An empty id fails immediately.
func (s *Shop) Price(ctx context.Context, productID string) (float64, error) {
	lo, hi, err := PriceRange(productID)
	if err != nil {
		return 0, err
	}

	if err := s.wait(ctx); err != nil {
		return 0, err
	}

	return lo + s.fraction(productID)*(hi-lo), nil
}

// PriceRange returns the half-open interval [min, max) every price of
// productID falls into.
func PriceRange(productID string) (lo, hi float64, err error) {
	first, second, err := runeCodes(productID)
	if err != nil {
		return 0, 0, err
	}
	return float64(second), float64(second) + float64(first), nil
}

func (s *Shop) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fetcher.NewInterruptedError(err)
	}
	if s.delay == 0 {
		return nil
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fetcher.NewInterruptedError(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (s *Shop) fraction(productID string) float64 {
	if s.seed == 0 {
		// top-level functions are safe for concurrent use
		return rand.Float64()
	}
	return rand.New(rand.NewPCG(s.seed, hashProduct(productID))).Float64()
}

func hashProduct(productID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(productID))
	return h.Sum64()
}

func runeCodes(productID string) (first, second rune, err error) {
	if productID == "" {
		return 0, 0, fetcher.NewInvalidInputError("empty product id")
	}
	if !utf8.ValidString(productID) {
		return 0, 0, fetcher.NewInvalidInputError(fmt.Sprintf("product id %q is not valid UTF-8", productID))
	}

	first, size := utf8.DecodeRuneInString(productID)
	second = sentinel
	if rest := productID[size:]; rest != "" {
		second, _ = utf8.DecodeRuneInString(rest)
	}
	return first, second, nil
}

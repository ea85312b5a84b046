package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopprice/internal/config"
	"shopprice/internal/coordinator"
	"shopprice/internal/fetcher"
	"shopprice/internal/shop"
	"shopprice/internal/shophttp"
)

var products = []string{"book", "phone", "battery", "pen"}

func newRemoteCoordinator(t *testing.T, baseURL string, mode coordinator.Mode) *coordinator.Coordinator {
	t.Helper()

	client, err := shophttp.NewClient(baseURL, shophttp.ClientOptions{Retries: 0})
	if err != nil {
		t.Fatalf("shophttp.NewClient() failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	coord, err := coordinator.New(client, coordinator.Options{Mode: mode, Workers: 4})
	if err != nil {
		t.Fatalf("coordinator.New() failed: %v", err)
	}
	return coord
}

// TestIntegration_RemoteShop prices the batch against a shop served over HTTP
func TestIntegration_RemoteShop(t *testing.T) {
	source := shop.New(0, 11)
	server := httptest.NewServer(shophttp.NewHandler(source, nil))
	defer server.Close()

	want := 0.0
	for _, p := range products {
		v, err := source.Price(context.Background(), p)
		if err != nil {
			t.Fatalf("Price(%q) failed: %v", p, err)
		}
		want += v
	}

	coord := newRemoteCoordinator(t, server.URL, coordinator.ModePool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := coord.Aggregate(ctx, products)
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}

	if batch.Sum != want {
		t.Errorf("Sum = %v, want %v", batch.Sum, want)
	}
}

// TestIntegration_ConcurrentFetching tests that lookups against a slow shop overlap
func TestIntegration_ConcurrentFetching(t *testing.T) {
	// Each lookup takes 100ms
	server := httptest.NewServer(shophttp.NewHandler(shop.New(100*time.Millisecond, 3), nil))
	defer server.Close()

	for _, mode := range []coordinator.Mode{coordinator.ModePool, coordinator.ModeAsync} {
		t.Run(string(mode), func(t *testing.T) {
			coord := newRemoteCoordinator(t, server.URL, mode)

			start := time.Now()
			_, err := coord.Aggregate(context.Background(), products)
			duration := time.Since(start)

			if err != nil {
				t.Fatalf("Aggregate() failed: %v", err)
			}

			// If lookups ran sequentially, it would take 400ms (4 * 100ms)
			// If concurrent, should be closer to 100ms
			if duration > 300*time.Millisecond {
				t.Errorf("Lookups likely ran sequentially. Duration: %v (expected < 300ms)", duration)
			}
		})
	}

	t.Run("sequential", func(t *testing.T) {
		coord := newRemoteCoordinator(t, server.URL, coordinator.ModeSequential)

		start := time.Now()
		if _, err := coord.Aggregate(context.Background(), products); err != nil {
			t.Fatalf("Aggregate() failed: %v", err)
		}

		if duration := time.Since(start); duration < 400*time.Millisecond {
			t.Errorf("Sequential batch finished in %v, expected at least 400ms", duration)
		}
	})
}

// TestIntegration_PartialFailures tests that one failing product fails the batch
func TestIntegration_PartialFailures(t *testing.T) {
	inner := shophttp.NewHandler(shop.New(0, 1), nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("product") == "battery" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		inner.ServeHTTP(w, r)
	}))
	defer server.Close()

	coord := newRemoteCoordinator(t, server.URL, coordinator.ModeAsync)

	batch, err := coord.Aggregate(context.Background(), products)
	if batch != nil {
		t.Errorf("Aggregate() returned partial batch: %+v", batch)
	}

	var aggErr *coordinator.AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("Aggregate() error = %v, want *coordinator.AggregateError", err)
	}
	if got := aggErr.Products(); len(got) != 1 || got[0] != "battery" {
		t.Errorf("failed products = %v, want [battery]", got)
	}
	if !fetcher.IsType(err, fetcher.ErrorTypeServer) {
		t.Errorf("Aggregate() error = %v, want a server FetchError", err)
	}
}

// TestIntegration_ContextTimeout tests that the batch timeout is respected
func TestIntegration_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(shophttp.NewHandler(shop.New(time.Minute, 1), nil))
	defer server.Close()

	coord := newRemoteCoordinator(t, server.URL, coordinator.ModePool)

	// Create context with very short timeout
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := coord.Aggregate(ctx, products)
	duration := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Aggregate() error = %v, want context.DeadlineExceeded in chain", err)
	}

	// Should complete quickly due to timeout, not hang forever
	if duration > 500*time.Millisecond {
		t.Errorf("Context timeout not respected. Duration: %v", duration)
	}
}

// TestIntegration_Run exercises the CLI path end to end with the simulated shop
func TestIntegration_Run(t *testing.T) {
	cfg := &config.Config{
		Products: products,
		Mode:     "pool",
		Workers:  4,
		Timeout:  5 * time.Second,
		Delay:    10 * time.Millisecond,
		Seed:     42,
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	output := out.String()
	for _, p := range products {
		if !strings.Contains(output, p+": $") {
			t.Errorf("output missing line for %s:\n%s", p, output)
		}
	}
	if !strings.Contains(output, "total price = [$") {
		t.Errorf("output missing total:\n%s", output)
	}
}

// TestIntegration_RunRemote exercises the CLI path against a remote shop
func TestIntegration_RunRemote(t *testing.T) {
	server := httptest.NewServer(shophttp.NewHandler(shop.New(0, 42), nil))
	defer server.Close()

	cfg := &config.Config{
		Products:      []string{"book", ""},
		Mode:          "sequential",
		Workers:       1,
		Timeout:       5 * time.Second,
		ShopBaseURL:   server.URL,
		ShopRateLimit: 100,
	}

	var out bytes.Buffer
	err := run(context.Background(), cfg, &out)
	if !fetcher.IsType(err, fetcher.ErrorTypeInvalidInput) {
		t.Errorf("run() error = %v, want invalid input for the empty product", err)
	}
	if strings.Contains(out.String(), "total price") {
		t.Errorf("no total should be printed for a failed batch:\n%s", out.String())
	}
}

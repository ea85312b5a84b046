package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"shopprice/internal/config"
	"shopprice/internal/coordinator"
	"shopprice/internal/fetcher"
	"shopprice/internal/metrics"
	"shopprice/internal/ratelimit"
	"shopprice/internal/shop"
	"shopprice/internal/shophttp"
)

func main() {
	flags := config.Flags()
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shopprice [flags] [product...]\n\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))
	metrics.Init()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if cfg.Interval > 0 && cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.ServeHTTP(cfg.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}
}

// run prices the configured batch once, or every cfg.Interval until ctx is
// cancelled. Failures of repeated batches are logged, not returned.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	coord, err := coordinator.New(source, coordinator.Options{
		Mode:    coordinator.Mode(cfg.Mode),
		Workers: cfg.Workers,
	})
	if err != nil {
		return err
	}

	if cfg.Interval == 0 {
		return runOnce(ctx, coord, cfg, out)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx, coord, cfg, out); err != nil {
			slog.Error("price batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, coord *coordinator.Coordinator, cfg *config.Config, out io.Writer) error {
	// Add timeout to prevent hanging indefinitely
	batchCtx, batchCancel := context.WithTimeout(ctx, cfg.Timeout)
	defer batchCancel()

	fmt.Fprintf(out, "Pricing %d products (%s mode)...\n", len(cfg.Products), coord.Mode())
	fmt.Fprintln(out, "================================================")

	batch, err := coord.Aggregate(batchCtx, cfg.Products)
	if err != nil {
		return err
	}

	printBatch(out, batch)
	return nil
}

// printBatch writes one line per product followed by the total, in the format:
//   - "PRODUCT: $VALUE"
//   - "Time taken [MS] ms. total price = [$TOTAL]"
func printBatch(out io.Writer, batch *coordinator.BatchResult) {
	for _, result := range batch.Results {
		fmt.Fprintf(out, "%s: $%.2f\n", result.Product, result.Value)
	}
	fmt.Fprintln(out, "================================================")
	fmt.Fprintf(out, "Time taken [%d] ms. total price = [$%s]\n",
		batch.Elapsed.Milliseconds(), batch.Total().StringFixed(2))
}

func newSource(cfg *config.Config) (fetcher.PriceSource, error) {
	if cfg.ShopBaseURL == "" {
		s := shop.New(cfg.Delay, cfg.Seed)
		slog.Info("using simulated shop", "delay", s.Delay(), "seeded", cfg.Seed != 0)
		return s, nil
	}

	limiter := ratelimit.New()
	client, err := shophttp.NewClient(cfg.ShopBaseURL, shophttp.ClientOptions{
		Retries:        cfg.ShopRetries,
		RequestTimeout: cfg.ShopRequestTimeout,
		Limiter:        limiter,
	})
	if err != nil {
		return nil, err
	}
	limiter.Set(client.Name(), cfg.ShopRateLimit)
	slog.Info("using remote shop",
		"source", client.Name(),
		"rate_limit", cfg.ShopRateLimit,
		"request_timeout", cfg.ShopRequestTimeout)
	return client, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

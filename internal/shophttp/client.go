package shophttp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"resty.dev/v3"

	"shopprice/internal/fetcher"
	"shopprice/internal/ratelimit"
)

// ClientOptions configures a remote shop client
type ClientOptions struct {
	// Retries is the number of retries for transient failures (5xx, 429, 408, network).
	Retries int
	// RetryWait overrides the initial backoff between retries when positive.
	RetryWait time.Duration
	// RequestTimeout bounds each attempt when positive. An attempt that runs
	// out of time fails with a timeout error and may be retried.
	RequestTimeout time.Duration
	// Limiter throttles requests to this shop when set.
	Limiter *ratelimit.Limiter
}

// Client fetches prices from a remote shop
type Client struct {
	name    string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

var _ fetcher.PriceSource = (*Client)(nil)

// NewClient creates a new remote shop client
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid shop base URL %q", baseURL)
	}

	client := fetcher.NewHTTPClient(baseURL, opts.Retries)
	if opts.RetryWait > 0 {
		client.SetRetryWaitTime(opts.RetryWait).
			SetRetryMaxWaitTime(4 * opts.RetryWait)
	}
	if opts.RequestTimeout > 0 {
		client.SetTimeout(opts.RequestTimeout)
	}

	return &Client{
		name:    "shop:http:" + u.Host,
		client:  client,
		limiter: opts.Limiter,
	}, nil
}

// Name implements fetcher.PriceSource
func (c *Client) Name() string {
	return c.name
}

// Close releases idle connections held by the client
func (c *Client) Close() error {
	return c.client.Close()
}

// Price retrieves the current price of productID from the remote shop
func (c *Client) Price(ctx context.Context, productID string) (float64, error) {
	if productID == "" {
		return 0, fetcher.NewInvalidInputError("empty product id")
	}

	if err := c.limiter.Wait(ctx, c.name); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fetcher.NewInterruptedError(ctxErr)
		}
		// the limiter gives up early when the next token is past the deadline
		return 0, fetcher.NewInterruptedError(err)
	}

	var result PriceResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("product", productID).
		SetResult(&result).
		Get(PricePath)

	if err != nil {
		return 0, fetcher.ClassifyRequestError(ctx, fmt.Errorf("failed to fetch price for %s: %w", productID, err))
	}

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusBadRequest {
			return 0, fetcher.NewInvalidInputError(fmt.Sprintf("shop rejected product %q", productID))
		}
		return 0, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	if result.Price == nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", productID))
	}

	return *result.Price, nil
}

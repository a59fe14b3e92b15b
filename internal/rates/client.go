package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownCurrency = errors.New("unknown currency code")

const retryAttempts = 3

// Client fetches exchange-rate tables from a latest-rates service and
// converts amounts with them. Lookups are timeout-bounded, retried on
// transport errors only, cached per base currency and deduped across
// concurrent callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *gocache.Cache
	group      singleflight.Group
}

// NewClient creates a rate client. baseURL is the service root up to but
// not including the /{currency} path segment.
func NewClient(baseURL string, timeout, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Convert multiplies amount by the service's rate from one currency to
// another. Matching codes return the amount untouched.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	table, err := c.rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := table[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return amount.Mul(decimal.NewFromFloat(rate)), nil
}

// rates returns the rate table for a base currency, from cache when
// fresh. Concurrent misses for the same base share one fetch.
func (c *Client) rates(ctx context.Context, from string) (map[string]float64, error) {
	if cached, ok := c.cache.Get(from); ok {
		return cached.(map[string]float64), nil
	}

	result, err, _ := c.group.Do(from, func() (any, error) {
		table, err := c.fetch(ctx, from)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(from, table)
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]float64), nil
}

func (c *Client) fetch(ctx context.Context, from string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, from)

	var table map[string]float64
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("build rate request: %w", err))
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				// Transport errors are the only retryable case.
				return fmt.Errorf("fetch rates for %s: %w", from, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrUnknownCurrency, from))
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("rate service returned status %d for %s", resp.StatusCode, from))
			}

			var body struct {
				Rates map[string]float64 `json:"rates"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode rate response: %w", err))
			}
			if len(body.Rates) == 0 {
				return retry.Unrecoverable(fmt.Errorf("rate response for %s has no rates", from))
			}

			table = body.Rates
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.WarnContext(ctx, "Retrying rate lookup",
				"currency", from, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

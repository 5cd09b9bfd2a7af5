package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// priceResponse is the JSON shape the reference endpoint returns.
type priceResponse struct {
	Price  float64 `json:"price"`
	Symbol string  `json:"symbol"`
	Error  *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// ReferencePriceClient polls an external endpoint for the market price of
// asset A in B terms. The price starts unknown and stays at the last good
// value across fetch failures.
type ReferencePriceClient struct {
	onUpdate     func(decimal.Decimal)
	price        decimal.Decimal
	known        bool
	mu           sync.RWMutex
	pollInterval time.Duration
	apiURL       string
	httpClient   *http.Client
	limiter      *RateLimiter
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewReferencePriceClient creates a polling client. onUpdate is optional and
// fires on every price change.
func NewReferencePriceClient(apiURL string, pollIntervalSec int, onUpdate func(decimal.Decimal)) *ReferencePriceClient {
	interval := 30 * time.Second
	if pollIntervalSec > 0 {
		interval = time.Duration(pollIntervalSec) * time.Second
	}
	return &ReferencePriceClient{
		onUpdate:     onUpdate,
		price:        decimal.Zero,
		pollInterval: interval,
		apiURL:       apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: NewRateLimiter(2, 1), // 1 req/s, burst 2
	}
}

// Start begins polling for price updates.
func (c *ReferencePriceClient) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Fetch immediately on start; a failure here is not fatal, the next
	// tick retries.
	if err := c.fetchPrice(ctx); err != nil {
		slog.Warn("Initial reference price fetch failed", slog.Any("error", err))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Reference price polling panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Reference price polling stopped")
				return
			case <-ticker.C:
				if err := c.fetchPrice(ctx); err != nil {
					slog.Warn("Reference price fetch failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// fetchPrice fetches the current price with retry and exponential backoff.
func (c *ReferencePriceClient) fetchPrice(ctx context.Context) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			delay := CalculateBackoff(i - 1)
			slog.Info("Retrying reference price fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.doFetch(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (c *ReferencePriceClient) doFetch(ctx context.Context) error {
	c.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var data priceResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return err
	}
	if data.Error != nil {
		return fmt.Errorf("reference API error: %s - %s", data.Error.Code, data.Error.Description)
	}
	if data.Price <= 0 {
		return fmt.Errorf("non-positive reference price: %v", data.Price)
	}

	newPrice := decimal.NewFromFloat(data.Price)

	c.mu.Lock()
	oldPrice := c.price
	c.price = newPrice
	c.known = true
	c.mu.Unlock()

	if !oldPrice.Equal(newPrice) {
		slog.Info("Reference price updated",
			slog.String("price", newPrice.String()),
			slog.String("old_price", oldPrice.String()))
		if c.onUpdate != nil {
			c.onUpdate(newPrice)
		}
	}

	return nil
}

// Stop stops the polling.
func (c *ReferencePriceClient) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
	}
}

// Price returns the last fetched price and whether one is known yet.
func (c *ReferencePriceClient) Price() (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price, c.known
}

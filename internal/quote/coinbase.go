// Package quote fetches current spot prices from the Coinbase public API.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/ratespy/ratespy-bot/internal/errors"
)

const defaultBaseURL = "https://api.coinbase.com"

// Client returns the current USD price for a currency code.
type Client interface {
	Spot(ctx context.Context, code string) (float64, error)
}

// CoinbaseClient queries the Coinbase v2 spot price endpoint. Calls go through
// a circuit breaker so a failing upstream gets fail-fast treatment instead of
// a timeout per user.
type CoinbaseClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *apperrors.CircuitBreaker
	log        *slog.Logger
}

// spotResponse mirrors the Coinbase /v2/prices/{pair}/spot payload.
type spotResponse struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

// NewCoinbaseClient builds a quote client with the provided base URL and timeout.
func NewCoinbaseClient(baseURL string, timeout time.Duration, log *slog.Logger) *CoinbaseClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &CoinbaseClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		breaker:    apperrors.NewCircuitBreaker(),
		log:        log,
	}
}

// Spot returns the current USD price for the given currency code.
func (c *CoinbaseClient) Spot(ctx context.Context, code string) (float64, error) {
	var price float64

	err := c.breaker.Call(func() error {
		fetched, err := c.fetch(ctx, code)
		if err != nil {
			return err
		}
		price = fetched
		return nil
	})
	if err != nil {
		return 0, apperrors.NewUpstreamError("coinbase", err)
	}

	return price, nil
}

func (c *CoinbaseClient) fetch(ctx context.Context, code string) (float64, error) {
	url := fmt.Sprintf("%s/v2/prices/%s-USD/spot", c.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build spot price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("spot price request failed", slog.String("code", code), slog.Any("error", err))
		return 0, fmt.Errorf("fetch spot price for %s: %w", code, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("spot price request returned non-200", slog.String("code", code), slog.Int("status", resp.StatusCode))
		return 0, fmt.Errorf("fetch spot price for %s: status %d", code, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read spot price response: %w", err)
	}

	var payload spotResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode spot price response: %w", err)
	}

	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil {
		c.log.Error("unexpected spot price format", slog.String("code", code), slog.String("amount", payload.Data.Amount))
		return 0, fmt.Errorf("parse spot price amount %q: %w", payload.Data.Amount, err)
	}

	return price, nil
}

package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payme-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.RateFetcher against an HTTP rate source that
// serves a JSON document of pair-keyed decimal rates.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a rate source client. The timeout bounds the whole
// request so a stalled source cannot hold up a quote.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// sourceResponse is the rate source wire format. Rates are decimal
// strings keyed by pair, e.g. {"rates": {"USD_IRR": "1070000"}}.
type sourceResponse struct {
	Rates     map[string]string `json:"rates"`
	Timestamp int64             `json:"timestamp"`
}

// Fetch retrieves the current rate table from the source.
func (c *Client) Fetch(ctx context.Context) (*domain.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var body sourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate source returned no rates")
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates))
	for pair, raw := range body.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			c.log.Warn().Str("pair", pair).Str("rate", raw).Msg("rate source: skipping unparseable rate")
			continue
		}
		if rate.IsPositive() {
			rates[pair] = rate
		}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("rate source returned no usable rates")
	}

	ts := time.Now().UTC()
	if body.Timestamp > 0 {
		ts = time.Unix(body.Timestamp, 0).UTC()
	}

	return &domain.RateTable{
		Rates:     rates,
		Timestamp: ts,
		Origin:    domain.RateOriginLive,
	}, nil
}

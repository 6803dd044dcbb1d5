// Package yahoo provides historical price and dividend fetching from the
// Yahoo Finance v8 chart API.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oskarw/folio/internal/clientdata"
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/rs/zerolog"
)

const userAgent = "folio/1.0"

// Client for the Yahoo Finance chart endpoint.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Yahoo Finance client.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://query2.finance.yahoo.com/v8/finance/chart",
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// chartResponse mirrors the subset of the v8 chart payload we consume.
// Null closes decode to zero and are filtered downstream.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves daily closes and dividend events for [start, end], in the
// instrument's native currency as reported by the chart metadata.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) Fetch(ticker string, start, end time.Time) (*marketdata.InstrumentData, error) {
	cacheKey := fmt.Sprintf("%s:%s:%s", ticker, domain.FormatDate(start), domain.FormatDate(end))

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("yahoo_chart", cacheKey)
		if err == nil && data != nil {
			parsed, perr := parseChart(ticker, data)
			if perr == nil {
				c.log.Debug().Str("ticker", ticker).Msg("Cache hit")
				return parsed, nil
			}
		}
	}

	// period2 is exclusive upstream, so push it one day past end.
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=div",
		c.baseURL, ticker, start.Unix(), end.AddDate(0, 0, 1).Unix())
	c.log.Debug().Str("url", url).Msg("Fetching chart")

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if stale, ok := c.getStaleFromCache(ticker, cacheKey); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached chart")
			return stale, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(ticker, cacheKey); ok {
			c.log.Warn().Int("status", resp.StatusCode).Str("ticker", ticker).Msg("API error, using stale cached chart")
			return stale, nil
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	parsed, err := parseChart(ticker, body)
	if err != nil {
		if stale, ok := c.getStaleFromCache(ticker, cacheKey); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse API response, using stale cached chart")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("yahoo_chart", cacheKey, json.RawMessage(body), clientdata.TTLYahooChart); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache chart response")
		}
	}

	c.log.Info().
		Str("ticker", ticker).
		Str("currency", parsed.Currency).
		Int("prices", len(parsed.Prices)).
		Int("dividends", len(parsed.Dividends)).
		Msg("Fetched chart")

	return parsed, nil
}

// getStaleFromCache retrieves a cached chart even if expired.
// Use this as a fallback when API calls fail - stale data is better than no data.
func (c *Client) getStaleFromCache(ticker, cacheKey string) (*marketdata.InstrumentData, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get("yahoo_chart", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}

	parsed, err := parseChart(ticker, data)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

// parseChart converts a raw chart payload into instrument data keyed to
// calendar days. Timestamps are exchange-local market opens; truncating the
// UTC time to a day matches how dates are stored everywhere else.
func parseChart(ticker string, body []byte) (*marketdata.InstrumentData, error) {
	var raw chartResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %v", ticker, raw.Chart.Error)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result for %s", ticker)
	}

	result := raw.Chart.Result[0]
	data := &marketdata.InstrumentData{
		Ticker:   ticker,
		Currency: result.Meta.Currency,
	}

	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i, ts := range result.Timestamp {
			if i >= len(closes) {
				break
			}
			data.Prices = append(data.Prices, domain.PricePoint{
				Ticker: ticker,
				Date:   domain.Day(time.Unix(ts, 0).UTC()),
				Close:  closes[i],
			})
		}
	}

	for _, div := range result.Events.Dividends {
		data.Dividends = append(data.Dividends, domain.DividendEvent{
			Ticker:   ticker,
			Date:     domain.Day(time.Unix(div.Date, 0).UTC()),
			Amount:   div.Amount,
			Currency: result.Meta.Currency,
		})
	}

	return data, nil
}

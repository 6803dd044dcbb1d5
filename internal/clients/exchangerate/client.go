// Package exchangerate provides dated currency exchange rate fetching and caching.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oskarw/folio/internal/clientdata"
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/fx"
	"github.com/rs/zerolog"
)

// Client for the frankfurter.app time-series API.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchange rate client.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://api.frankfurter.app",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate").Logger(),
		cacheRepo: cacheRepo,
	}
}

// ratesResponse is the time-series payload: date -> currency -> rate.
type ratesResponse struct {
	Rates map[string]map[string]float64 `json:"rates"`
}

// FetchRates returns the dated from->to rate series over [start, end].
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) FetchRates(from, to string, start, end time.Time) ([]fx.RatePoint, error) {
	if from == to {
		return []fx.RatePoint{{Date: domain.Day(start), Rate: 1.0}}, nil
	}

	startStr, endStr := domain.FormatDate(start), domain.FormatDate(end)
	cacheKey := fmt.Sprintf("%s:%s:%s:%s", from, to, startStr, endStr)

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("exchangerate", cacheKey)
		if err == nil && data != nil {
			points, perr := parseRates(to, data)
			if perr == nil {
				c.log.Debug().Str("from", from).Str("to", to).Msg("Cache hit")
				return points, nil
			}
		}
	}

	url := fmt.Sprintf("%s/%s..%s?from=%s&to=%s", c.baseURL, startStr, endStr, from, to)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		if stale, ok := c.getStaleFromCache(to, cacheKey); ok {
			c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("API failed, using stale cached rates")
			return stale, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(to, cacheKey); ok {
			c.log.Warn().Int("status", resp.StatusCode).Str("from", from).Str("to", to).Msg("API error, using stale cached rates")
			return stale, nil
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	points, err := parseRates(to, body)
	if err != nil {
		if stale, ok := c.getStaleFromCache(to, cacheKey); ok {
			c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Failed to parse API response, using stale cached rates")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("exchangerate", cacheKey, json.RawMessage(body), clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("pair", cacheKey).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().
		Str("from", from).
		Str("to", to).
		Int("points", len(points)).
		Msg("Fetched rates")

	return points, nil
}

// getStaleFromCache retrieves cached rates even if expired.
// Use this as a fallback when API calls fail - stale data is better than no data.
func (c *Client) getStaleFromCache(to, cacheKey string) ([]fx.RatePoint, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get("exchangerate", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}

	points, err := parseRates(to, data)
	if err != nil {
		return nil, false
	}
	return points, true
}

// parseRates extracts the target currency's dated rates. Order is left to the
// caller; the converter sorts its series on load.
func parseRates(to string, body []byte) ([]fx.RatePoint, error) {
	var raw ratesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(raw.Rates) == 0 {
		return nil, fmt.Errorf("no rates in response")
	}

	var points []fx.RatePoint
	for dateStr, currencies := range raw.Rates {
		rate, ok := currencies[to]
		if !ok || rate <= 0 {
			continue
		}
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			continue
		}
		points = append(points, fx.RatePoint{Date: date, Rate: rate})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("rate not found for target currency %s", to)
	}

	return points, nil
}

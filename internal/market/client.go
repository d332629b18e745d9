package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/metrics"
	"github.com/coinsift/coinsift/internal/model"
)

// Client fetches one paginated snapshot of market metrics from a
// CoinGecko-compatible provider, ordered by market capitalization descending.
// Transport failures, timeouts and non-2xx statuses are retried with
// exponential backoff; malformed payloads are fatal.
type Client struct {
	cfg      config.ClientConfig
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    Cache
	cacheTTL time.Duration
	metrics  *metrics.Registry

	// sleep is swapped in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a market-data client. cache may be nil to disable
// snapshot caching; m may be nil to use the process-wide registry.
func NewClient(cfg config.ClientConfig, cache Cache, cacheTTL time.Duration, m *metrics.Registry) *Client {
	if m == nil {
		m = metrics.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "market-data",
		Timeout: cfg.Circuit.GetCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Circuit.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.GetTimeout()},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker:  breaker,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		sleep:    sleepContext,
	}
}

// Fetch returns the current snapshot table. It tries the cache first, then
// the provider with up to MaxRetries attempts. The returned snapshots are
// fully coerced; rows that fail coercion are dropped, not passed downstream.
func (c *Client) Fetch(ctx context.Context) ([]model.AssetSnapshot, error) {
	key := fmt.Sprintf("markets:%s:%d", c.cfg.VsCurrency, c.cfg.PageSize)

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			c.metrics.CacheHits.Inc()
			if snapshots, err := c.parse(body); err == nil {
				log.Debug().Int("rows", len(snapshots)).Msg("using cached market snapshot")
				return snapshots, nil
			}
		} else {
			c.metrics.CacheMisses.Inc()
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := c.backoff(attempt)
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("backing off before retry")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &FetchError{Attempts: attempt - 1, Err: err}
			}
		}

		c.metrics.FetchAttempts.Inc()
		body, err := c.doRequest(ctx)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", c.cfg.MaxRetries).
				Msg("market fetch attempt failed")
			continue
		}

		snapshots, err := c.parse(body)
		if err != nil {
			c.metrics.FetchErrors.WithLabelValues("format").Inc()
			return nil, err
		}

		if c.cache != nil {
			c.cache.Set(ctx, key, body, c.cacheTTL)
		}
		log.Info().Int("rows", len(snapshots)).Msg("fetched market snapshot")
		return snapshots, nil
	}

	c.metrics.FetchErrors.WithLabelValues("fetch").Inc()
	return nil, &FetchError{Attempts: c.cfg.MaxRetries, Err: lastErr}
}

// backoff returns the delay before the given attempt. Delays double from the
// configured base and never exceed the ceiling.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.GetBaseBackoff() << uint(attempt-2)
	if ceiling := c.cfg.GetMaxBackoff(); d > ceiling {
		d = ceiling
	}
	return d
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf(
		"%s/coins/markets?vs_currency=%s&order=market_cap_desc&per_page=%d&page=1&sparkline=false&price_change_percentage=24h",
		c.cfg.BaseURL, c.cfg.VsCurrency, c.cfg.PageSize)
}

// parse validates the payload shape and coerces each row. The payload must be
// a non-empty JSON list; anything else is a DataFormatError.
func (c *Client) parse(body []byte) ([]model.AssetSnapshot, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &DataFormatError{Reason: "payload is not a list"}
	}
	if len(rows) == 0 {
		return nil, &DataFormatError{Reason: "payload is an empty list"}
	}

	snapshots := make([]model.AssetSnapshot, 0, len(rows))
	dropped := 0
	for _, raw := range rows {
		snapshot, ok := coerceRow(raw)
		if !ok {
			dropped++
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	if dropped > 0 {
		c.metrics.RowsDropped.Add(float64(dropped))
		log.Warn().Int("dropped", dropped).Int("kept", len(snapshots)).
			Msg("dropped market rows that failed numeric coercion")
	}
	return snapshots, nil
}

// marketRow is the wire shape of one provider row. Numeric fields tolerate
// numbers, numeric strings and null; anything else leaves the field unset.
type marketRow struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	CurrentPrice flexFloat `json:"current_price"`
	TotalVolume  flexFloat `json:"total_volume"`
	MarketCap    flexFloat `json:"market_cap"`
	Change24h    flexFloat `json:"price_change_percentage_24h"`
}

func coerceRow(raw json.RawMessage) (model.AssetSnapshot, bool) {
	var row marketRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.AssetSnapshot{}, false
	}
	if row.ID == "" || row.Symbol == "" {
		return model.AssetSnapshot{}, false
	}
	if !row.CurrentPrice.ok || row.CurrentPrice.val <= 0 {
		return model.AssetSnapshot{}, false
	}
	if !row.TotalVolume.ok || row.TotalVolume.val < 0 {
		return model.AssetSnapshot{}, false
	}
	if !row.MarketCap.ok || row.MarketCap.val < 0 {
		return model.AssetSnapshot{}, false
	}
	if !row.Change24h.ok {
		return model.AssetSnapshot{}, false
	}

	return model.AssetSnapshot{
		ID:                row.ID,
		Symbol:            strings.ToUpper(row.Symbol),
		Name:              row.Name,
		ImageURL:          row.Image,
		CurrentPrice:      row.CurrentPrice.val,
		TotalVolume:       row.TotalVolume.val,
		MarketCap:         row.MarketCap.val,
		PriceChangePct24h: row.Change24h.val,
	}, true
}

// flexFloat accepts a JSON number, a numeric string or null. Null and
// unparseable values leave ok false, which disqualifies the row.
type flexFloat struct {
	val float64
	ok  bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.val = v
	f.ok = true
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

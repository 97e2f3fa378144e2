// Package feed fetches the current price and historical klines for the
// demo's single trading symbol from the Binance public REST API.
//
// Both calls are best-effort: the session manager swallows refresh
// failures and keeps showing stale data until the next interval.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trading-demov1/internal/model"
)

// KlineLimit is the maximum number of candles requested per refresh.
const KlineLimit = 800

// Client talks to one market-data REST endpoint for one symbol.
type Client struct {
	baseURL string
	symbol  string
	http    *http.Client
}

// New creates a feed client. baseURL defaults to the Binance public
// API when empty.
func New(baseURL, symbol string) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		baseURL: baseURL,
		symbol:  symbol,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Symbol returns the configured trading symbol.
func (c *Client) Symbol() string { return c.symbol }

// LastPrice fetches the current ticker price.
func (c *Client) LastPrice(ctx context.Context) (float64, error) {
	u := c.baseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(c.symbol)

	var body struct {
		Price string `json:"price"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return 0, err
	}

	p, err := strconv.ParseFloat(body.Price, 64)
	if err != nil || !isFinite(p) {
		return 0, fmt.Errorf("feed: invalid price %q", body.Price)
	}
	return p, nil
}

// Klines fetches up to KlineLimit most recent OHLC candles at the
// interval mapped from tf. Rows with any non-finite field are dropped.
func (c *Client) Klines(ctx context.Context, tf model.Timeframe) ([]model.Candle, error) {
	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		c.baseURL, url.QueryEscape(c.symbol), url.QueryEscape(tf.Interval()), KlineLimit)

	// Binance kline rows are heterogeneous arrays:
	// [openTimeMs, "open", "high", "low", "close", "volume", ...]
	var rows [][]json.RawMessage
	if err := c.getJSON(ctx, u, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			continue
		}
		o, err1 := parsePriceField(row[1])
		h, err2 := parsePriceField(row[2])
		l, err3 := parsePriceField(row[3])
		cl, err4 := parsePriceField(row[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		candles = append(candles, model.Candle{
			Time:  openMs / 1000,
			Open:  o,
			High:  h,
			Low:   l,
			Close: cl,
		})
	}
	return candles, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("feed: HTTP %d from %s", res.StatusCode, u)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("feed: decode: %w", err)
	}
	return nil
}

func parsePriceField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Some mirrors return bare numbers instead of strings.
		var f float64
		if err2 := json.Unmarshal(raw, &f); err2 != nil {
			return 0, err
		}
		if !isFinite(f) {
			return 0, fmt.Errorf("non-finite price")
		}
		return f, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(f) {
		return 0, fmt.Errorf("non-finite price")
	}
	return f, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package model

import (
	"encoding/json"
	"time"
)

// Candle is one OHLC bar as fetched from the market-data source.
// Prices stay float64 exactly as the exchange reports them; candles are
// immutable once fetched and the whole series is replaced on refresh.
type Candle struct {
	Time  int64   `json:"t"` // bucket open time (Unix seconds)
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

// TS returns the candle open time as time.Time (UTC).
func (c *Candle) TS() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

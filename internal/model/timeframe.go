package model

// Timeframe is one of the six selectable chart intervals.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// Timeframes lists all supported intervals in display order.
var Timeframes = []Timeframe{TF1m, TF5m, TF15m, TF1h, TF4h, TF1d}

// Valid reports whether tf is a supported interval.
func (tf Timeframe) Valid() bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Interval returns the exchange kline interval string for tf,
// defaulting to 1m for unknown values.
func (tf Timeframe) Interval() string {
	if tf.Valid() {
		return string(tf)
	}
	return string(TF1m)
}

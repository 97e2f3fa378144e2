package model

import "time"

// Side is the direction of a demo position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Outcome of a settled trade.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Phase of the payout cycle.
type Phase string

const (
	// PhaseCollect forces losses until enough pool has been seeded.
	PhaseCollect Phase = "collect"
	// PhasePayout permits wins while the pool lasts.
	PhasePayout Phase = "payout"
)

// Position is the single open trade. Destroyed (set to nil on the
// session) exactly when the trade settles.
type Position struct {
	Side       Side    `json:"side"`
	Stake      int64   `json:"stake"` // cents
	Duration   int     `json:"duration"`
	Remaining  int     `json:"remaining"` // seconds until auto-close
	EntryPrice float64 `json:"entry_price"`
}

// ClosedTrade is one settled trade. Append-only; never mutated after
// creation.
type ClosedTrade struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	Side         Side      `json:"side"`
	Stake        int64     `json:"stake"`  // cents
	Outcome      Outcome   `json:"outcome"`
	Payout       int64     `json:"payout"` // cents, >= 0
	Fee          int64     `json:"fee"`    // cents, >= 0
	BalanceAfter int64     `json:"balance_after"`
}

// ChartMarker is an annotation drawn on the chart, created on position
// open and exit-animation completion.
type ChartMarker struct {
	Time  int64   `json:"ts"` // Unix seconds
	Price float64 `json:"price"`
	Text  string  `json:"text"`
}

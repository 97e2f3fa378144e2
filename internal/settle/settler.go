// Package settle resolves trade outcomes. Two strategies exist: Local
// runs the payout cycle engine in-process, Remote defers to the
// settlement backend and treats its response as authoritative. The
// strategy is chosen once at startup based on session availability.
package settle

import (
	"context"

	"trading-demov1/internal/model"
)

// Request describes the closing position.
type Request struct {
	Side       model.Side
	Stake      int64 // cents
	Duration   int
	EntryPrice float64
	Symbol     string
	TF         model.Timeframe
}

// Result is the applied settlement.
type Result struct {
	Outcome model.Outcome
	Payout  int64 // cents
	Fee     int64 // cents
}

// Settler settles one closing trade against the session state. On
// success the state's money fields and history reflect the settlement.
type Settler interface {
	Settle(ctx context.Context, s *model.SessionState, req Request) (Result, error)
}

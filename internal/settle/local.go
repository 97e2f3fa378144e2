package settle

import (
	"context"

	"trading-demov1/internal/engine"
	"trading-demov1/internal/model"
)

// Local settles trades in-process with the payout cycle engine.
type Local struct{}

// NewLocal returns the local settlement strategy.
func NewLocal() *Local { return &Local{} }

// Settle applies the cycle engine directly. It cannot fail.
func (l *Local) Settle(ctx context.Context, s *model.SessionState, req Request) (Result, error) {
	r := engine.Settle(s, req.Side, req.Stake)
	return Result{Outcome: r.Outcome, Payout: r.Payout, Fee: r.Fee}, nil
}

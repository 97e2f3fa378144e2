// Package engine implements the payout cycle state machine that decides
// the outcome of every settling demo trade.
//
// The cycle has two phases. During "collect" every settlement is a
// forced LOSS: the full stake leaves the balance, 30% seeds the pool
// and the remaining 70% is realized as house fee. After two losses the
// cycle flips to "payout", where each settlement WINs at most 30% of
// its own stake and never more than the pool holds. An empty pool
// restarts the cycle, so the house always recovers stake before it
// ever pays out.
package engine

import (
	"time"

	"trading-demov1/internal/model"

	"github.com/google/uuid"
)

const (
	// Percent of a losing stake that seeds the pool.
	lossPoolPct = 30
	// Percent of a losing stake realized as house fee (informational;
	// the stake deduction already nets it).
	lossFeePct = 70
	// Percent of a winning stake the payout is capped at.
	winCapPct = 30

	// poolEpsilon is the sub-cent residue threshold: any pool at or
	// below it is treated as zero.
	poolEpsilon = 1 // cents
)

// Result describes one settlement as applied to the session.
type Result struct {
	Outcome model.Outcome
	Payout  int64 // cents, 0 on LOSS
	Fee     int64 // cents, 0 on WIN
}

// PredictOutcome is the pure preview used for UI display before
// settlement: collect always loses, payout wins while the pool lasts.
func PredictOutcome(s *model.SessionState) model.Outcome {
	if s.Phase == model.PhaseCollect {
		return model.OutcomeLoss
	}
	if s.Pool > 0 {
		return model.OutcomeWin
	}
	return model.OutcomeLoss
}

// StartCycle resets to a fresh collect phase with an empty pool.
func StartCycle(s *model.SessionState) {
	s.Phase = model.PhaseCollect
	s.CollectRemaining = model.CollectLossCount
	s.Pool = 0
}

// Normalize repairs inconsistent phase state. Idempotent; run before
// any settlement decision.
func Normalize(s *model.SessionState) {
	if s.Pool <= 0 && s.Phase == model.PhasePayout {
		StartCycle(s)
	}
	if s.Phase == model.PhaseCollect && s.CollectRemaining <= 0 {
		s.Phase = model.PhasePayout
	}
}

// Settle applies one closed trade to the session: decides the outcome,
// moves money between balance and pool, advances the cycle and appends
// the ClosedTrade record. Stake is in cents. The caller owns history
// eviction.
func Settle(s *model.SessionState, side model.Side, stake int64) Result {
	if s.Phase == model.PhaseCollect {
		return settleLoss(s, side, stake)
	}

	if s.Pool <= 0 {
		// Pool drained before this trade settled: restart the cycle and
		// the trade still loses. No free pass between cycles.
		StartCycle(s)
		return settleLoss(s, side, stake)
	}

	return settleWin(s, side, stake)
}

func settleLoss(s *model.SessionState, side model.Side, stake int64) Result {
	fee := stake * lossFeePct / 100
	toPool := stake * lossPoolPct / 100

	s.Balance -= stake
	s.Pool += toPool

	s.CollectRemaining--
	if s.CollectRemaining <= 0 {
		s.Phase = model.PhasePayout
	}

	r := Result{Outcome: model.OutcomeLoss, Fee: fee}
	record(s, side, stake, r)
	return r
}

func settleWin(s *model.SessionState, side model.Side, stake int64) Result {
	payout := stake * winCapPct / 100
	if payout > s.Pool {
		payout = s.Pool
	}

	s.Balance += payout
	s.Pool -= payout
	if s.Pool < poolEpsilon {
		s.Pool = 0
	}
	if s.Pool == 0 {
		StartCycle(s)
	}

	r := Result{Outcome: model.OutcomeWin, Payout: payout}
	record(s, side, stake, r)
	return r
}

func record(s *model.SessionState, side model.Side, stake int64, r Result) {
	s.History = append(s.History, model.ClosedTrade{
		ID:           uuid.NewString(),
		Time:         time.Now(),
		Side:         side,
		Stake:        stake,
		Outcome:      r.Outcome,
		Payout:       r.Payout,
		Fee:          r.Fee,
		BalanceAfter: s.Balance,
	})
}

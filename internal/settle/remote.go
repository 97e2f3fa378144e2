package settle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-demov1/internal/model"

	"github.com/google/uuid"
)

// RPC procedure names exposed by the settlement backend.
const (
	rpcSettleTrade = "app_game_settle_trade"
	rpcGetState    = "app_game_get_state"
)

// Remote settles trades through the settlement backend. The response
// is authoritative: local balance, pool, phase and collect counter are
// overwritten with whatever the backend returns.
type Remote struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
}

// NewRemote creates a remote settler for one authenticated user.
func NewRemote(baseURL, token, userID string) *Remote {
	return &Remote{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type settleResponse struct {
	Outcome          string  `json:"outcome"`
	BalanceAfter     float64 `json:"balance_after"`
	PoolAfter        float64 `json:"pool_after"`
	Phase            string  `json:"phase"`
	CollectRemaining int     `json:"collect_remaining"`
	Payout           float64 `json:"payout"`
	Fee              float64 `json:"fee"`
}

// Settle calls the settle-trade procedure and applies the response.
func (r *Remote) Settle(ctx context.Context, s *model.SessionState, req Request) (Result, error) {
	params := map[string]interface{}{
		"p_user":        r.userID,
		"p_side":        string(req.Side),
		"p_stake":       model.CentsToFloat(req.Stake),
		"p_duration":    req.Duration,
		"p_entry_price": req.EntryPrice,
		"p_symbol":      req.Symbol,
		"p_tf":          string(req.TF),
	}

	var res settleResponse
	if err := r.rpc(ctx, rpcSettleTrade, params, &res); err != nil {
		return Result{}, err
	}

	outcome := model.Outcome(res.Outcome)
	if outcome != model.OutcomeWin && outcome != model.OutcomeLoss {
		return Result{}, fmt.Errorf("settle: backend returned unknown outcome %q", res.Outcome)
	}

	// Backend state wins over local state.
	s.Balance = model.CentsFromFloat(res.BalanceAfter)
	s.Pool = model.CentsFromFloat(res.PoolAfter)
	if p := model.Phase(res.Phase); p == model.PhaseCollect || p == model.PhasePayout {
		s.Phase = p
	}
	if res.CollectRemaining >= 0 {
		s.CollectRemaining = res.CollectRemaining
	}

	result := Result{
		Outcome: outcome,
		Payout:  model.CentsFromFloat(res.Payout),
		Fee:     model.CentsFromFloat(res.Fee),
	}
	s.History = append(s.History, model.ClosedTrade{
		ID:           uuid.NewString(),
		Time:         time.Now(),
		Side:         req.Side,
		Stake:        req.Stake,
		Outcome:      outcome,
		Payout:       result.Payout,
		Fee:          result.Fee,
		BalanceAfter: s.Balance,
	})
	return result, nil
}

type stateResponse struct {
	Balance          float64 `json:"balance"`
	Pool             float64 `json:"pool"`
	Phase            string  `json:"phase"`
	CollectRemaining int     `json:"collect_remaining"`
	History          []struct {
		ID           string  `json:"id"`
		Time         string  `json:"time"`
		Side         string  `json:"side"`
		Stake        float64 `json:"stake"`
		Outcome      string  `json:"outcome"`
		Payout       float64 `json:"payout"`
		Fee          float64 `json:"fee"`
		BalanceAfter float64 `json:"balance_after"`
	} `json:"history"`
}

// FetchState pulls the authoritative money state and trade history,
// overwriting the local copy. Used at startup and to reconcile after a
// failed settlement.
func (r *Remote) FetchState(ctx context.Context, s *model.SessionState) error {
	var res stateResponse
	if err := r.rpc(ctx, rpcGetState, map[string]interface{}{"p_user": r.userID}, &res); err != nil {
		return err
	}

	s.Balance = model.CentsFromFloat(res.Balance)
	s.Pool = model.CentsFromFloat(res.Pool)
	if p := model.Phase(res.Phase); p == model.PhaseCollect || p == model.PhasePayout {
		s.Phase = p
	}
	if res.CollectRemaining >= 0 {
		s.CollectRemaining = res.CollectRemaining
	}

	if res.History != nil {
		history := make([]model.ClosedTrade, 0, len(res.History))
		for _, h := range res.History {
			t, _ := time.Parse(time.RFC3339, h.Time)
			history = append(history, model.ClosedTrade{
				ID:           h.ID,
				Time:         t,
				Side:         model.Side(h.Side),
				Stake:        model.CentsFromFloat(h.Stake),
				Outcome:      model.Outcome(h.Outcome),
				Payout:       model.CentsFromFloat(h.Payout),
				Fee:          model.CentsFromFloat(h.Fee),
				BalanceAfter: model.CentsFromFloat(h.BalanceAfter),
			})
		}
		s.History = history
	}
	return nil
}

func (r *Remote) rpc(ctx context.Context, name string, params, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/rpc/"+name, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	res, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("settle rpc %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("settle rpc %s: HTTP %d", name, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("settle rpc %s: decode: %w", name, err)
	}
	return nil
}

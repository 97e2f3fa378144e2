// Package server implements the settlement backend: the authoritative
// money state lives in Postgres, and trades settle through the same
// payout-cycle engine the local mode uses. Exposed as two RPC
// endpoints consumed by the demo server's remote settler.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trading-demov1/internal/engine"
	"trading-demov1/internal/logger"
	"trading-demov1/internal/model"
)

const historyLimit = 350

// Server serves the settlement RPC endpoints.
type Server struct {
	repo  Repository
	token string
	log   *slog.Logger
}

// New creates a settlement server. An empty token disables auth.
func New(repo Repository, token string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{repo: repo, token: token, log: log}
}

// Register mounts the RPC routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rpc/app_game_settle_trade", s.withAuth(s.handleSettleTrade))
	mux.HandleFunc("/rpc/app_game_get_state", s.withAuth(s.handleGetState))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				httpError(w, http.StatusUnauthorized, "bad token")
				return
			}
		}
		ctx := logger.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		next(w, r.WithContext(ctx))
	}
}

type settleParams struct {
	User       string  `json:"p_user"`
	Side       string  `json:"p_side"`
	Stake      float64 `json:"p_stake"`
	Duration   int     `json:"p_duration"`
	EntryPrice float64 `json:"p_entry_price"`
	Symbol     string  `json:"p_symbol"`
	TF         string  `json:"p_tf"`
}

func (s *Server) handleSettleTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p settleParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	side := model.Side(p.Side)
	stake := model.CentsFromFloat(p.Stake)
	if p.User == "" || !side.Valid() || stake <= 0 {
		httpError(w, http.StatusBadRequest, "p_user, p_side and positive p_stake are required")
		return
	}

	acct, err := s.repo.Account(ctx, p.User)
	if err != nil {
		s.log.Error("account load failed", append(logger.WithRequest(ctx), "err", err)...)
		httpError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if stake > acct.Balance {
		httpError(w, http.StatusBadRequest, "stake exceeds balance")
		return
	}

	// Run the settlement through the shared cycle engine on a throwaway
	// session seeded from the account row.
	st := &model.SessionState{
		Balance:          acct.Balance,
		Pool:             acct.Pool,
		Phase:            model.Phase(acct.Phase),
		CollectRemaining: acct.CollectRemaining,
	}
	engine.Normalize(st)
	res := engine.Settle(st, side, stake)

	acct.Balance = st.Balance
	acct.Pool = st.Pool
	acct.Phase = string(st.Phase)
	acct.CollectRemaining = st.CollectRemaining
	if err := s.repo.SaveAccount(ctx, acct); err != nil {
		s.log.Error("account save failed", append(logger.WithRequest(ctx), "err", err)...)
		httpError(w, http.StatusInternalServerError, "storage error")
		return
	}

	trade := st.History[len(st.History)-1]
	row := TradeRow{
		ID:           trade.ID,
		UserID:       p.User,
		Time:         trade.Time,
		Side:         string(side),
		Stake:        stake,
		Outcome:      string(res.Outcome),
		Payout:       res.Payout,
		Fee:          res.Fee,
		BalanceAfter: st.Balance,
	}
	if err := s.repo.InsertTrade(ctx, row); err != nil {
		// Account state is already committed; journal loss is tolerable.
		s.log.Warn("trade journal insert failed", append(logger.WithRequest(ctx), "err", err)...)
	}

	s.log.Info("trade settled", append(logger.WithRequest(ctx),
		"user", p.User, "side", side, "outcome", res.Outcome,
		"stake_cents", stake, "payout_cents", res.Payout)...)

	writeJSON(w, map[string]interface{}{
		"outcome":           string(res.Outcome),
		"balance_after":     model.CentsToFloat(st.Balance),
		"pool_after":        model.CentsToFloat(st.Pool),
		"phase":             string(st.Phase),
		"collect_remaining": st.CollectRemaining,
		"payout":            model.CentsToFloat(res.Payout),
		"fee":               model.CentsToFloat(res.Fee),
	})
}

type stateParams struct {
	User string `json:"p_user"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p stateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.User == "" {
		httpError(w, http.StatusBadRequest, "p_user is required")
		return
	}

	acct, err := s.repo.Account(ctx, p.User)
	if err != nil {
		s.log.Error("account load failed", append(logger.WithRequest(ctx), "err", err)...)
		httpError(w, http.StatusInternalServerError, "storage error")
		return
	}
	rows, err := s.repo.Trades(ctx, p.User, historyLimit)
	if err != nil {
		s.log.Error("trades load failed", append(logger.WithRequest(ctx), "err", err)...)
		httpError(w, http.StatusInternalServerError, "storage error")
		return
	}

	history := make([]map[string]interface{}, 0, len(rows))
	for _, t := range rows {
		history = append(history, map[string]interface{}{
			"id":            t.ID,
			"time":          t.Time.Format(time.RFC3339),
			"side":          t.Side,
			"stake":         model.CentsToFloat(t.Stake),
			"outcome":       t.Outcome,
			"payout":        model.CentsToFloat(t.Payout),
			"fee":           model.CentsToFloat(t.Fee),
			"balance_after": model.CentsToFloat(t.BalanceAfter),
		})
	}

	writeJSON(w, map[string]interface{}{
		"balance":           model.CentsToFloat(acct.Balance),
		"pool":              model.CentsToFloat(acct.Pool),
		"phase":             acct.Phase,
		"collect_remaining": acct.CollectRemaining,
		"history":           history,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-demov1/internal/model"
)

// fakeRepo keeps accounts and trades in memory.
type fakeRepo struct {
	accounts map[string]*Account
	trades   []TradeRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[string]*Account)}
}

func (f *fakeRepo) Account(ctx context.Context, userID string) (*Account, error) {
	if a, ok := f.accounts[userID]; ok {
		cp := *a
		return &cp, nil
	}
	a := &Account{
		UserID:           userID,
		Balance:          model.DefaultBalance,
		Phase:            string(model.PhaseCollect),
		CollectRemaining: model.CollectLossCount,
	}
	f.accounts[userID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) SaveAccount(ctx context.Context, a *Account) error {
	cp := *a
	f.accounts[a.UserID] = &cp
	return nil
}

func (f *fakeRepo) InsertTrade(ctx context.Context, t TradeRow) error {
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeRepo) Trades(ctx context.Context, userID string, limit int) ([]TradeRow, error) {
	var out []TradeRow
	for _, t := range f.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestServer(t *testing.T, token string) (*httptest.Server, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	mux := http.NewServeMux()
	New(repo, token, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, repo
}

func rpc(t *testing.T, srv *httptest.Server, token, name string, params interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(params)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/rpc/"+name, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("rpc %s: %v", name, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestSettleTrade_CollectLoss(t *testing.T) {
	srv, repo := newTestServer(t, "")

	resp, out := rpc(t, srv, "", "app_game_settle_trade", map[string]interface{}{
		"p_user": "u-1", "p_side": "BUY", "p_stake": 100.0,
		"p_duration": 60, "p_entry_price": 64000.0, "p_symbol": "BTCUSDT", "p_tf": "1m",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
	}

	if out["outcome"] != "LOSS" {
		t.Errorf("outcome = %v", out["outcome"])
	}
	if out["balance_after"] != 900.0 || out["pool_after"] != 30.0 {
		t.Errorf("balance_after = %v pool_after = %v", out["balance_after"], out["pool_after"])
	}
	if out["fee"] != 70.0 {
		t.Errorf("fee = %v", out["fee"])
	}

	acct := repo.accounts["u-1"]
	if acct.Balance != 90_000 || acct.Pool != 3_000 || acct.CollectRemaining != 1 {
		t.Errorf("persisted account = %+v", acct)
	}
	if len(repo.trades) != 1 || repo.trades[0].Outcome != "LOSS" {
		t.Errorf("journal = %+v", repo.trades)
	}
}

func TestSettleTrade_FullCycle(t *testing.T) {
	srv, repo := newTestServer(t, "")

	settle := func() map[string]interface{} {
		resp, out := rpc(t, srv, "", "app_game_settle_trade", map[string]interface{}{
			"p_user": "u-1", "p_side": "BUY", "p_stake": 100.0,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
		}
		return out
	}

	settle() // loss 1
	out := settle() // loss 2 flips the phase
	if out["phase"] != "payout" {
		t.Errorf("phase after two losses = %v", out["phase"])
	}

	out = settle() // payout-phase win, capped at 30% of stake
	if out["outcome"] != "WIN" || out["payout"] != 30.0 {
		t.Errorf("win = %v payout = %v", out["outcome"], out["payout"])
	}
	if out["pool_after"] != 30.0 {
		t.Errorf("pool_after = %v", out["pool_after"])
	}

	acct := repo.accounts["u-1"]
	if acct.Phase != "payout" {
		t.Errorf("account phase = %s", acct.Phase)
	}
}

func TestSettleTrade_Validation(t *testing.T) {
	srv, _ := newTestServer(t, "")

	cases := []struct {
		name   string
		params map[string]interface{}
	}{
		{"missing user", map[string]interface{}{"p_side": "BUY", "p_stake": 100.0}},
		{"bad side", map[string]interface{}{"p_user": "u", "p_side": "HOLD", "p_stake": 100.0}},
		{"zero stake", map[string]interface{}{"p_user": "u", "p_side": "BUY", "p_stake": 0.0}},
		{"stake over balance", map[string]interface{}{"p_user": "u", "p_side": "BUY", "p_stake": 99999.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := rpc(t, srv, "", "app_game_settle_trade", tc.params)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	resp, _ := rpc(t, srv, "wrong", "app_game_get_state", map[string]interface{}{"p_user": "u"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", resp.StatusCode)
	}

	resp, _ = rpc(t, srv, "secret", "app_game_get_state", map[string]interface{}{"p_user": "u"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("right token: status = %d", resp.StatusCode)
	}
}

func TestGetState(t *testing.T) {
	srv, repo := newTestServer(t, "")

	repo.accounts["u-2"] = &Account{
		UserID: "u-2", Balance: 91_250, Pool: 1_250,
		Phase: "payout", CollectRemaining: 0,
	}
	repo.trades = append(repo.trades, TradeRow{
		ID: "t1", UserID: "u-2", Time: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Side: "SELL", Stake: 5_000, Outcome: "LOSS", Fee: 3_500, BalanceAfter: 91_250,
	})

	resp, out := rpc(t, srv, "", "app_game_get_state", map[string]interface{}{"p_user": "u-2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["balance"] != 912.5 || out["pool"] != 12.5 || out["phase"] != "payout" {
		t.Errorf("state = %v", out)
	}
	history, ok := out["history"].([]interface{})
	if !ok || len(history) != 1 {
		t.Fatalf("history = %v", out["history"])
	}
	entry := history[0].(map[string]interface{})
	if entry["stake"] != 50.0 || entry["fee"] != 35.0 {
		t.Errorf("history entry = %v", entry)
	}
}

func TestGetState_NewUserGetsDefaults(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, out := rpc(t, srv, "", "app_game_get_state", map[string]interface{}{"p_user": "fresh"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["balance"] != 1000.0 || out["phase"] != "collect" {
		t.Errorf("defaults = %v", out)
	}
	if out["collect_remaining"] != 2.0 {
		t.Errorf("collect_remaining = %v", out["collect_remaining"])
	}
}

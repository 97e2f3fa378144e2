package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"trading-demov1/internal/model"
)

func TestLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q, want BTCUSDT", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64250.10"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "BTCUSDT")
	p, err := c.LastPrice(context.Background())
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if p != 64250.10 {
		t.Errorf("price = %v, want 64250.10", p)
	}
}

func TestLastPrice_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadGateway, `{}`},
		{"garbage price", http.StatusOK, `{"price":"not-a-number"}`},
		{"empty price", http.StatusOK, `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, "BTCUSDT")
			if _, err := c.LastPrice(context.Background()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("interval") != "5m" {
			t.Errorf("interval = %q, want 5m", q.Get("interval"))
		}
		if q.Get("limit") != "800" {
			t.Errorf("limit = %q, want 800", q.Get("limit"))
		}
		w.Write([]byte(`[
			[1700000000000, "100.5", "101.0", "99.9", "100.8", "12.3", 1700000059999],
			[1700000060000, "100.8", "102.0", "100.1", "101.4", "8.8", 1700000119999]
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "BTCUSDT")
	ks, err := c.Klines(context.Background(), model.TF5m)
	if err != nil {
		t.Fatalf("Klines: %v", err)
	}
	if len(ks) != 2 {
		t.Fatalf("got %d candles, want 2", len(ks))
	}
	first := ks[0]
	if first.Time != 1700000000 {
		t.Errorf("time = %d, want 1700000000", first.Time)
	}
	if first.Open != 100.5 || first.High != 101.0 || first.Low != 99.9 || first.Close != 100.8 {
		t.Errorf("unexpected OHLC: %+v", first)
	}
}

func TestKlines_DropsBadRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1700000000000, "100.5", "101.0", "99.9", "100.8"],
			[1700000060000, "NaN", "102.0", "100.1", "101.4"],
			[1700000120000, "100.0", "oops", "100.1", "101.4"],
			[1700000180000, "100.2"],
			[1700000240000, "100.2", "100.9", "99.8", "100.3"]
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "BTCUSDT")
	ks, err := c.Klines(context.Background(), model.TF1m)
	if err != nil {
		t.Fatalf("Klines: %v", err)
	}
	if len(ks) != 2 {
		t.Fatalf("got %d candles, want 2 (bad rows dropped)", len(ks))
	}
	if ks[1].Time != 1700000240 {
		t.Errorf("second candle time = %d, want 1700000240", ks[1].Time)
	}
}

func TestKlines_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "BTCUSDT")
	if _, err := c.Klines(context.Background(), model.TF1m); err == nil {
		t.Error("expected error on HTTP 429, got nil")
	}
}

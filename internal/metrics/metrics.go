// Package metrics exposes Prometheus metrics for the demo trading
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the demo server.
type Metrics struct {
	TradesTotal      *prometheus.CounterVec // labels: outcome
	PayoutCents      prometheus.Counter
	FeeCents         prometheus.Counter
	BalanceCents     prometheus.Gauge
	PoolCents        prometheus.Gauge
	RefreshDur       prometheus.Histogram
	RefreshErrors    prometheus.Counter
	SettleRemoteErrs prometheus.Counter
	WSClients        prometheus.Gauge
	ScenesBuilt      prometheus.Counter
}

// New registers and returns all collectors on the default registry.
func New() *Metrics {
	m := &Metrics{
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demoserver_trades_total",
			Help: "Settled trades by outcome",
		}, []string{"outcome"}),
		PayoutCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demoserver_payout_cents_total",
			Help: "Total payout credited, in cents",
		}),
		FeeCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demoserver_fee_cents_total",
			Help: "Total house fee realized, in cents",
		}),
		BalanceCents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demoserver_balance_cents",
			Help: "Current demo balance, in cents",
		}),
		PoolCents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demoserver_pool_cents",
			Help: "Current payout pool, in cents",
		}),
		RefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "demoserver_market_refresh_duration_seconds",
			Help:    "Market data refresh latency",
			Buckets: prometheus.DefBuckets,
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demoserver_market_refresh_errors_total",
			Help: "Failed market refreshes (swallowed, stale data kept)",
		}),
		SettleRemoteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demoserver_settle_remote_errors_total",
			Help: "Remote settlement calls that failed",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demoserver_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		ScenesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demoserver_scenes_built_total",
			Help: "Chart scenes computed",
		}),
	}

	prometheus.MustRegister(
		m.TradesTotal, m.PayoutCents, m.FeeCents,
		m.BalanceCents, m.PoolCents,
		m.RefreshDur, m.RefreshErrors, m.SettleRemoteErrs,
		m.WSClients, m.ScenesBuilt,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

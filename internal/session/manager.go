// Package session owns the demo session: the single mutable
// SessionState value, the position lifecycle, the market refresh and
// simulated-price tickers, and write-through persistence. Every
// mutator completes its read-modify-write-persist-broadcast sequence
// under the manager's lock before yielding.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"trading-demov1/internal/anim"
	"trading-demov1/internal/chart"
	"trading-demov1/internal/engine"
	"trading-demov1/internal/feed"
	"trading-demov1/internal/metrics"
	"trading-demov1/internal/model"
	"trading-demov1/internal/settle"
	"trading-demov1/internal/store"
)

const (
	defaultRefreshInterval = 12 * time.Second
	defaultSimTickInterval = 520 * time.Millisecond
	defaultExitAnimDur     = 1800 * time.Millisecond

	// Simulated price random-walk amplitude (fraction of base price).
	simWalkAmp = 0.00025
	// Exit animation target distance from entry (fraction of base).
	exitStepFrac = 0.0008
)

// Validation failures surfaced to the user as transient notices.
var (
	ErrPositionOpen  = errors.New("close the current position first")
	ErrBadStake      = errors.New("stake must be greater than 0")
	ErrNoBalance     = errors.New("insufficient balance")
	ErrBadDuration   = errors.New("invalid duration")
	ErrPriceNotReady = errors.New("price not ready")
)

// PriceSource is what the manager needs from the market-data adapter.
type PriceSource interface {
	LastPrice(ctx context.Context) (float64, error)
	Klines(ctx context.Context, tf model.Timeframe) ([]model.Candle, error)
	Symbol() string
}

var _ PriceSource = (*feed.Client)(nil)

// Config wires the manager's collaborators. Store, Settler and Feed
// are required; the rest default sensibly.
type Config struct {
	Store   store.Store
	Settler settle.Settler
	Feed    PriceSource
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// OnChange fires after every state mutation; the gateway rebroadcasts.
	OnChange func()
	// OnNotice surfaces transient user-facing messages.
	OnNotice func(text string)

	RefreshInterval time.Duration
	SimTickInterval time.Duration
	ExitAnimDur     time.Duration
	FrameInterval   time.Duration
}

// Manager is the single owner of the session state.
type Manager struct {
	mu    sync.Mutex
	state *model.SessionState
	cross chart.Crosshair

	store    store.Store
	settler  settle.Settler
	feed     PriceSource
	metrics  *metrics.Metrics
	log      *slog.Logger
	renderer *chart.Renderer
	anim     *anim.Runner
	rng      *rand.Rand

	onChange func()
	onNotice func(string)

	refreshEvery time.Duration
	simTickEvery time.Duration
	exitAnimDur  time.Duration

	// closing guards settlement: Close is not reentrant, and the
	// position is cleared only after settlement completes.
	closing bool
	// lastJournaled dedups trade-journal writes across persists.
	lastJournaled string
}

// New loads the persisted session (falling back to defaults when the
// blob is missing, malformed, or the store errors) and returns the
// manager.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.SimTickInterval <= 0 {
		cfg.SimTickInterval = defaultSimTickInterval
	}
	if cfg.ExitAnimDur <= 0 {
		cfg.ExitAnimDur = defaultExitAnimDur
	}

	st, err := cfg.Store.Load(context.Background())
	if err != nil {
		cfg.Logger.Warn("session load failed, starting from defaults", "err", err)
		st = model.DefaultState()
	}
	st.Sanitize()
	engine.Normalize(st)

	m := &Manager{
		state:        st,
		store:        cfg.Store,
		settler:      cfg.Settler,
		feed:         cfg.Feed,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		renderer:     chart.NewRenderer(),
		anim:         anim.NewRunner(cfg.FrameInterval),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		onChange:     cfg.OnChange,
		onNotice:     cfg.OnNotice,
		refreshEvery: cfg.RefreshInterval,
		simTickEvery: cfg.SimTickInterval,
		exitAnimDur:  cfg.ExitAnimDur,
	}
	m.updateGauges()
	return m
}

// Run drives the three periodic loops until ctx is cancelled: the
// 1-second position countdown, the simulated-price random walk and the
// market refresh. An initial refresh fires immediately.
func (m *Manager) Run(ctx context.Context) {
	go m.RefreshMarket(ctx)

	go m.loop(ctx, time.Second, m.countdownTick)
	go m.loop(ctx, m.simTickEvery, m.simTick)
	go m.loop(ctx, m.refreshEvery, func() { m.RefreshMarket(ctx) })
}

func (m *Manager) loop(ctx context.Context, every time.Duration, tick func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// Open creates the single position. rawStake accepts localized digit
// entry. Validation failures return an error and leave state untouched,
// except the documented stake clamp to available balance.
func (m *Manager) Open(side model.Side, rawStake string, durationSec int) error {
	m.mu.Lock()
	clamped, err := m.openLocked(side, rawStake, durationSec)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if clamped {
		m.notice("Stake adjusted to available balance.")
	}
	m.changed()
	return nil
}

// openLocked validates and creates the position. Caller holds the lock.
func (m *Manager) openLocked(side model.Side, rawStake string, durationSec int) (clamped bool, err error) {
	if m.state.Position != nil {
		return false, ErrPositionOpen
	}
	if !side.Valid() {
		return false, errors.New("unknown side " + string(side))
	}

	stake := ParseStake(rawStake)
	if stake <= 0 {
		return false, ErrBadStake
	}
	if stake > m.state.Balance {
		// Clamp to the whole-unit floor of the available balance.
		stake = m.state.Balance / 100 * 100
		if stake <= 0 {
			return false, ErrNoBalance
		}
		clamped = true
	}
	if durationSec <= 0 {
		return false, ErrBadDuration
	}

	engine.Normalize(m.state)

	entry, ok := m.state.EntryPrice()
	if !ok {
		return false, ErrPriceNotReady
	}

	m.state.Position = &model.Position{
		Side:       side,
		Stake:      stake,
		Duration:   durationSec,
		Remaining:  durationSec,
		EntryPrice: entry,
	}
	m.state.Markers = append(m.state.Markers, model.ChartMarker{
		Time:  time.Now().Unix(),
		Price: entry,
		Text:  string(side) + " ENTRY",
	})

	m.persist()
	return clamped, nil
}

// Close settles the open position. No-op when nothing is open or a
// settlement is already in flight; the position is cleared only once
// settlement completes. A failed remote settlement discards the
// position locally and surfaces the error.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()

	if m.state.Position == nil || m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	defer func() {
		m.mu.Lock()
		m.closing = false
		m.mu.Unlock()
	}()

	pos := *m.state.Position
	engine.Normalize(m.state)

	// Settlement runs with the lock held: no other mutator may observe
	// or change the money state mid-settle.
	res, err := m.settler.Settle(ctx, m.state, settle.Request{
		Side:       pos.Side,
		Stake:      pos.Stake,
		Duration:   pos.Duration,
		EntryPrice: pos.EntryPrice,
		Symbol:     m.feed.Symbol(),
		TF:         m.state.TF,
	})
	if err != nil {
		// Availability over consistency: drop the position so the UI
		// never sticks; the next authoritative refresh reconciles.
		m.state.Position = nil
		if m.metrics != nil {
			m.metrics.SettleRemoteErrs.Inc()
		}
		m.log.Warn("settlement failed, position discarded", "err", err)
		m.persist()
		m.mu.Unlock()
		m.changed()
		m.notice(err.Error())
		return err
	}

	m.playExitAnimation(pos, res.Outcome)

	m.state.Position = nil
	m.trimHistory()

	if m.metrics != nil {
		m.metrics.TradesTotal.WithLabelValues(string(res.Outcome)).Inc()
		m.metrics.PayoutCents.Add(float64(res.Payout))
		m.metrics.FeeCents.Add(float64(res.Fee))
	}
	m.updateGauges()

	m.persist()
	m.mu.Unlock()
	m.changed()
	m.notice(string(res.Outcome))
	return nil
}

// playExitAnimation tweens the simulated price toward a small synthetic
// target near the entry, biased in the direction consistent with the
// settled outcome. Cosmetic only: the settlement above is already
// final. Caller holds the lock.
func (m *Manager) playExitAnimation(pos model.Position, outcome model.Outcome) {
	entry := pos.EntryPrice
	base := entry
	if m.state.HasLastPrice {
		base = m.state.LastPrice
	}

	step := base * exitStepFrac
	noise := (m.rng.Float64() - 0.5) * step * 0.6
	wantUp := (pos.Side == model.SideBuy && outcome == model.OutcomeWin) ||
		(pos.Side == model.SideSell && outcome == model.OutcomeLoss)
	target := entry - step + noise
	if wantUp {
		target = entry + step + noise
	}

	start := entry
	if m.state.HasSimPrice {
		start = m.state.SimPrice
	}

	m.anim.Play(anim.Tween{
		Start:    start,
		End:      target,
		Duration: m.exitAnimDur,
		Ease:     anim.EaseOutCubic,
		OnUpdate: func(v float64) {
			m.mu.Lock()
			m.state.SimPrice = v
			m.state.HasSimPrice = true
			m.persist()
			m.mu.Unlock()
			m.changed()
		},
		OnDone: func(v float64) {
			m.mu.Lock()
			m.state.Markers = append(m.state.Markers, model.ChartMarker{
				Time:  time.Now().Unix(),
				Price: v,
				Text:  string(outcome) + " EXIT",
			})
			m.persist()
			m.mu.Unlock()
			m.changed()
		},
	})
}

// countdownTick decrements the open position's remaining time and
// auto-closes at zero.
func (m *Manager) countdownTick() {
	m.mu.Lock()
	if m.state.Position == nil || m.closing {
		m.mu.Unlock()
		return
	}
	m.state.Position.Remaining--
	expired := m.state.Position.Remaining <= 0
	if !expired {
		m.persist()
	}
	m.mu.Unlock()

	if expired {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		m.Close(ctx)
		return
	}
	m.changed()
}

// simTick advances the simulated price by a small random walk around
// the last known real price.
func (m *Manager) simTick() {
	m.mu.Lock()
	base := 0.0
	ok := false
	if m.state.HasLastPrice {
		base, ok = m.state.LastPrice, true
	} else {
		base, ok = m.state.LastClose()
	}
	if !ok {
		m.mu.Unlock()
		return
	}

	if !m.state.HasSimPrice {
		m.state.SimPrice = base
		m.state.HasSimPrice = true
	}
	amp := base * simWalkAmp
	delta := (m.rng.Float64() - 0.5) * 2 * amp
	m.state.SimPrice += delta
	if m.state.SimPrice < 0 {
		m.state.SimPrice = 0
	}
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// RefreshMarket fetches the current price and candles. Failures are
// swallowed: stale data stays on screen and the next interval retries.
func (m *Manager) RefreshMarket(ctx context.Context) {
	m.mu.Lock()
	tf := m.state.TF
	m.mu.Unlock()

	start := time.Now()
	price, errP := m.feed.LastPrice(ctx)
	candles, errK := m.feed.Klines(ctx, tf)
	if m.metrics != nil {
		m.metrics.RefreshDur.Observe(time.Since(start).Seconds())
	}
	if errP != nil || errK != nil {
		if m.metrics != nil {
			m.metrics.RefreshErrors.Inc()
		}
		m.log.Debug("market refresh failed", "price_err", errP, "klines_err", errK)
		return
	}

	m.mu.Lock()
	m.state.LastPrice = price
	m.state.HasLastPrice = true
	m.state.Candles = candles
	if m.state.Position == nil {
		m.state.SimPrice = price
		m.state.HasSimPrice = true
	}
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// SetTimeframe switches the chart interval, resets the pan offset and
// kicks off a refresh.
func (m *Manager) SetTimeframe(ctx context.Context, tf model.Timeframe) error {
	if !tf.Valid() {
		return errors.New("unknown timeframe")
	}
	m.mu.Lock()
	m.state.TF = tf
	m.state.Chart.Offset = 0
	m.persist()
	m.mu.Unlock()
	m.changed()

	go m.RefreshMarket(ctx)
	return nil
}

// ToggleIndicator flips one overlay by name: sma20, sma50 or ema20.
func (m *Manager) ToggleIndicator(name string, on bool) error {
	m.mu.Lock()
	switch name {
	case "sma20":
		m.state.Chart.SMA20 = on
	case "sma50":
		m.state.Chart.SMA50 = on
	case "ema20":
		m.state.Chart.EMA20 = on
	default:
		m.mu.Unlock()
		return errors.New("unknown indicator " + name)
	}
	m.persist()
	m.mu.Unlock()
	m.changed()
	return nil
}

// Wheel applies a zoom step per wheel notch.
func (m *Manager) Wheel(notches int) {
	m.mu.Lock()
	chart.ApplyWheel(&m.state.Chart, notches)
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// Pan applies a drag pan from the drag-start offset.
func (m *Manager) Pan(startOffset int, dxPx, plotW float64) {
	m.mu.Lock()
	chart.ApplyDrag(&m.state.Chart, startOffset, dxPx, plotW, len(m.state.Candles))
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// Pinch applies a two-finger zoom from the gesture-start geometry.
func (m *Manager) Pinch(startZoom int, startDist, dist float64) {
	m.mu.Lock()
	chart.ApplyPinch(&m.state.Chart, startZoom, startDist, dist)
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// SetCrosshair tracks the pointer. Not persisted; purely cosmetic.
func (m *Manager) SetCrosshair(active bool, x, y float64) {
	m.mu.Lock()
	m.cross = chart.Crosshair{Active: active, X: x, Y: y}
	m.mu.Unlock()
	m.changed()
}

// ResetView restores default zoom and offset.
func (m *Manager) ResetView() {
	m.mu.Lock()
	chart.ResetView(&m.state.Chart)
	m.persist()
	m.mu.Unlock()
	m.changed()
}

// ResetDemo discards the whole session and starts fresh. Candles
// reload on the next refresh.
func (m *Manager) ResetDemo(ctx context.Context) {
	m.anim.Cancel()
	m.mu.Lock()
	m.state = model.DefaultState()
	m.updateGauges()
	m.persist()
	m.mu.Unlock()
	m.changed()
	m.notice("Demo reset.")

	go m.RefreshMarket(ctx)
}

// SyncRemote replaces the local money state and history with the
// settlement backend's authoritative copy. Used at startup in remote
// mode.
func (m *Manager) SyncRemote(ctx context.Context, rem *settle.Remote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := rem.FetchState(ctx, m.state); err != nil {
		return err
	}
	m.trimHistory()
	m.updateGauges()
	m.persist()
	return nil
}

// BuildScene renders the chart draw list for the given canvas size.
func (m *Manager) BuildScene(w, h float64) *chart.Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ScenesBuilt.Inc()
	}
	return m.renderer.Build(m.state, w, h, m.cross)
}

// StatePayload is the UI-facing snapshot broadcast to clients.
type StatePayload struct {
	Symbol           string          `json:"symbol"`
	Balance          float64         `json:"balance"`
	Pool             float64         `json:"pool"`
	Phase            model.Phase     `json:"phase"`
	CollectRemaining int             `json:"collect_remaining"`
	NextOutcome      model.Outcome   `json:"next_outcome"`
	LastPrice        *float64        `json:"last_price"`
	SimPrice         *float64        `json:"sim_price"`
	TF               model.Timeframe `json:"tf"`
	Chart            model.ChartView `json:"chart"`
	Position         *model.Position `json:"position"`
	History          []historyEntry  `json:"history"`
}

type historyEntry struct {
	Time         string  `json:"time"`
	Side         string  `json:"side"`
	Stake        float64 `json:"stake"`
	Outcome      string  `json:"outcome"`
	Payout       float64 `json:"payout"`
	Fee          float64 `json:"fee"`
	BalanceAfter float64 `json:"balance_after"`
}

// Snapshot returns the UI payload for broadcasting.
func (m *Manager) Snapshot() StatePayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := StatePayload{
		Symbol:           m.feed.Symbol(),
		Balance:          model.CentsToFloat(m.state.Balance),
		Pool:             model.CentsToFloat(m.state.Pool),
		Phase:            m.state.Phase,
		CollectRemaining: m.state.CollectRemaining,
		NextOutcome:      engine.PredictOutcome(m.state),
		TF:               m.state.TF,
		Chart:            m.state.Chart,
		History:          make([]historyEntry, 0, len(m.state.History)),
	}
	if m.state.HasLastPrice {
		v := m.state.LastPrice
		p.LastPrice = &v
	}
	if m.state.HasSimPrice {
		v := m.state.SimPrice
		p.SimPrice = &v
	}
	if m.state.Position != nil {
		pos := *m.state.Position
		p.Position = &pos
	}
	for _, h := range m.state.History {
		p.History = append(p.History, historyEntry{
			Time:         h.Time.Format(time.RFC3339),
			Side:         string(h.Side),
			Stake:        model.CentsToFloat(h.Stake),
			Outcome:      string(h.Outcome),
			Payout:       model.CentsToFloat(h.Payout),
			Fee:          model.CentsToFloat(h.Fee),
			BalanceAfter: model.CentsToFloat(h.BalanceAfter),
		})
	}
	return p
}

// trimHistory evicts the oldest entries beyond the cap. Caller holds
// the lock.
func (m *Manager) trimHistory() {
	if n := len(m.state.History); n > model.HistoryCap {
		m.state.History = append([]model.ClosedTrade(nil), m.state.History[n-model.HistoryCap:]...)
	}
}

// persist writes the state through to storage. Caller holds the lock.
// Storage failures are logged, never fatal.
func (m *Manager) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, m.state); err != nil {
		m.log.Warn("session save failed", "err", err)
	}

	if j, ok := m.store.(store.TradeJournal); ok && len(m.state.History) > 0 {
		last := m.state.History[len(m.state.History)-1]
		if last.ID != m.lastJournaled {
			if err := j.RecordTrade(ctx, last); err != nil {
				m.log.Warn("trade journal write failed", "err", err)
			}
			m.lastJournaled = last.ID
		}
	}
}

func (m *Manager) updateGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.BalanceCents.Set(float64(m.state.Balance))
	m.metrics.PoolCents.Set(float64(m.state.Pool))
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *Manager) notice(text string) {
	if m.onNotice != nil {
		m.onNotice(text)
	}
}

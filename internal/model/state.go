package model

const (
	// DefaultBalance is the demo bankroll granted on reset, in cents.
	DefaultBalance = 100_000 // 1000.00

	// CollectLossCount is how many forced losses seed a fresh cycle.
	CollectLossCount = 2

	// HistoryCap bounds the trade history; oldest entries are evicted
	// first when the cap is exceeded.
	HistoryCap = 350

	// MarkerRenderCap is how many of the most recent markers the chart
	// draws.
	MarkerRenderCap = 25

	// Zoom bounds in visible candles.
	ZoomMin     = 40
	ZoomMax     = 260
	ZoomDefault = 120
)

// ChartView holds the cosmetic view parameters. Interaction handlers
// mutate only this struct, never the financial fields.
type ChartView struct {
	Zoom   int  `json:"zoom"`   // number of candles visible
	Offset int  `json:"offset"` // candles back from the latest
	SMA20  bool `json:"sma20"`
	SMA50  bool `json:"sma50"`
	EMA20  bool `json:"ema20"`
}

// SessionState is the single persisted record for one demo profile.
// Money fields are cents; only the payout cycle engine mutates
// Balance/Pool/Phase/CollectRemaining.
type SessionState struct {
	Balance          int64         `json:"balance"` // cents
	Pool             int64         `json:"pool"`    // cents, never negative
	Phase            Phase         `json:"phase"`
	CollectRemaining int           `json:"collect_remaining"`
	Position         *Position     `json:"position"`
	History          []ClosedTrade `json:"history"`
	Candles          []Candle      `json:"candles"`
	Markers          []ChartMarker `json:"markers"`
	SimPrice         float64       `json:"sim_price"` // 0 = unset
	HasSimPrice      bool          `json:"has_sim_price"`
	LastPrice        float64       `json:"last_price"` // 0 = unset
	HasLastPrice     bool          `json:"has_last_price"`
	TF               Timeframe     `json:"tf"`
	Chart            ChartView     `json:"chart"`
}

// DefaultState returns a fresh demo session.
func DefaultState() *SessionState {
	return &SessionState{
		Balance:          DefaultBalance,
		Pool:             0,
		Phase:            PhaseCollect,
		CollectRemaining: CollectLossCount,
		History:          []ClosedTrade{},
		Candles:          []Candle{},
		Markers:          []ChartMarker{},
		TF:               TF1m,
		Chart: ChartView{
			Zoom:  ZoomDefault,
			SMA20: true,
		},
	}
}

// Sanitize repairs a state loaded from storage: missing or malformed
// fields fall back to defaults so an old or corrupt blob never crashes
// rendering.
func (s *SessionState) Sanitize() {
	if s.Phase != PhaseCollect && s.Phase != PhasePayout {
		s.Phase = PhaseCollect
		s.CollectRemaining = CollectLossCount
	}
	if s.CollectRemaining < 0 {
		s.CollectRemaining = 0
	}
	if s.Pool < 0 {
		s.Pool = 0
	}
	if s.History == nil {
		s.History = []ClosedTrade{}
	}
	if s.Candles == nil {
		s.Candles = []Candle{}
	}
	if s.Markers == nil {
		s.Markers = []ChartMarker{}
	}
	if !s.TF.Valid() {
		s.TF = TF1m
	}
	if s.Chart.Zoom == 0 {
		s.Chart = ChartView{Zoom: ZoomDefault, SMA20: true}
	}
	if s.Chart.Zoom < ZoomMin {
		s.Chart.Zoom = ZoomMin
	}
	if s.Chart.Zoom > ZoomMax {
		s.Chart.Zoom = ZoomMax
	}
	if s.Chart.Offset < 0 {
		s.Chart.Offset = 0
	}
	if s.Position != nil && (!s.Position.Side.Valid() || s.Position.Stake <= 0) {
		s.Position = nil
	}
}

// LastClose returns the latest candle close, or 0/false when no
// candles are loaded.
func (s *SessionState) LastClose() (float64, bool) {
	if len(s.Candles) == 0 {
		return 0, false
	}
	return s.Candles[len(s.Candles)-1].Close, true
}

// EntryPrice resolves the best available entry price: the simulated
// price, then the last fetched price, then the latest candle close.
func (s *SessionState) EntryPrice() (float64, bool) {
	if s.HasSimPrice {
		return s.SimPrice, true
	}
	if s.HasLastPrice {
		return s.LastPrice, true
	}
	return s.LastClose()
}

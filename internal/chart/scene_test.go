package chart

import (
	"math"
	"testing"

	"trading-demov1/internal/model"
)

func stateWithCandles(n int) *model.SessionState {
	s := model.DefaultState()
	for i := 0; i < n; i++ {
		base := 100 + float64(i%7)
		s.Candles = append(s.Candles, model.Candle{
			Time:  int64(1700000000 + i*60),
			Open:  base,
			High:  base + 2,
			Low:   base - 2,
			Close: base + 1,
		})
	}
	return s
}

func TestBuild_LoadingPlaceholder(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(9)

	sc := r.Build(s, 800, 400, Crosshair{})
	if !sc.Loading {
		t.Fatal("expected loading scene with fewer than 10 candles")
	}
	if len(sc.Candles) != 0 || len(sc.Grid) != 0 {
		t.Error("loading scene must not contain chart geometry")
	}
}

func TestBuild_CandleGeometry(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(200)
	s.Chart.Zoom = 100

	sc := r.Build(s, 852, 456, Crosshair{})
	if sc.Loading {
		t.Fatal("unexpected loading scene")
	}
	if len(sc.Candles) != 100 {
		t.Fatalf("drew %d candles, want zoom-many (100)", len(sc.Candles))
	}

	plotW := 852 - DefaultPadding.Left - DefaultPadding.Right
	xStep := plotW / 100
	wantBody := math.Max(2, math.Floor(xStep*0.62))
	for i, c := range sc.Candles {
		if c.BodyWidth != wantBody {
			t.Fatalf("candle %d body width %v, want %v", i, c.BodyWidth, wantBody)
		}
		if c.WickTop > c.BodyTop || c.WickBottom < c.BodyTop+c.BodyHeight {
			t.Fatalf("candle %d wick does not span body: %+v", i, c)
		}
	}

	// 5 gridlines and matching axis labels.
	if len(sc.Grid) != 5 || len(sc.AxisLabels) != 5 {
		t.Errorf("grid=%d labels=%d, want 5/5", len(sc.Grid), len(sc.AxisLabels))
	}
}

func TestBuild_PriceRangeIncludesSimPrice(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(50)
	s.HasSimPrice = true
	s.SimPrice = 500 // far above every candle high

	sc := r.Build(s, 800, 400, Crosshair{})
	if sc.PriceLine == nil || sc.PriceLabel == nil {
		t.Fatal("expected sim price guide line and label")
	}
	// With the range extended to the sim price, its line must sit
	// inside the plot (below the top padding).
	if sc.PriceLine.Y1 < DefaultPadding.Top {
		t.Errorf("price line y=%v above plot top %v", sc.PriceLine.Y1, DefaultPadding.Top)
	}
}

func TestBuild_MarkersCappedAt25(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(100)
	s.Chart.Zoom = 100
	for i := 0; i < 40; i++ {
		s.Markers = append(s.Markers, model.ChartMarker{
			Time:  s.Candles[i].Time,
			Price: s.Candles[i].Close,
			Text:  "ENTRY",
		})
	}

	sc := r.Build(s, 800, 400, Crosshair{})
	if len(sc.Markers) > model.MarkerRenderCap {
		t.Errorf("rendered %d markers, cap is %d", len(sc.Markers), model.MarkerRenderCap)
	}
	if len(sc.Markers) != model.MarkerRenderCap {
		t.Errorf("rendered %d markers, want exactly %d (all visible)", len(sc.Markers), model.MarkerRenderCap)
	}
}

func TestBuild_MarkerOutsideViewSkipped(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(100)
	s.Markers = append(s.Markers, model.ChartMarker{
		Time:  s.Candles[99].Time + 10_000, // after every candle
		Price: 100,
		Text:  "EXIT",
	})

	sc := r.Build(s, 800, 400, Crosshair{})
	if len(sc.Markers) != 0 {
		t.Errorf("marker beyond the last candle should not render, got %d", len(sc.Markers))
	}
}

func TestBuild_Overlays(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(100)
	s.Chart.SMA20 = true
	s.Chart.SMA50 = true
	s.Chart.EMA20 = true

	sc := r.Build(s, 800, 400, Crosshair{})
	if len(sc.Overlays) != 3 {
		t.Fatalf("got %d overlays, want 3", len(sc.Overlays))
	}
	names := map[string]int{}
	for _, o := range sc.Overlays {
		names[o.Name] = len(o.Points)
	}
	// SMA20 over 100 visible closes defines 81 points, SMA50 51,
	// EMA20 99.
	if names["SMA20"] != 81 || names["SMA50"] != 51 || names["EMA20"] != 99 {
		t.Errorf("overlay point counts = %v", names)
	}
}

func TestBuild_CrosshairOnlyInsidePlot(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(100)

	sc := r.Build(s, 800, 400, Crosshair{Active: true, X: 400, Y: 200})
	if len(sc.Crosshair) != 2 {
		t.Errorf("expected 2 crosshair lines, got %d", len(sc.Crosshair))
	}

	sc = r.Build(s, 800, 400, Crosshair{Active: true, X: 2, Y: 2})
	if len(sc.Crosshair) != 0 {
		t.Error("crosshair outside plot must not render")
	}

	sc = r.Build(s, 800, 400, Crosshair{Active: false, X: 400, Y: 200})
	if len(sc.Crosshair) != 0 {
		t.Error("inactive crosshair must not render")
	}
}

func TestBuild_DoesNotMutateState(t *testing.T) {
	r := NewRenderer()
	s := stateWithCandles(100)
	s.Chart.Zoom = 999   // out of range on purpose
	s.Chart.Offset = 999 // out of range on purpose

	r.Build(s, 800, 400, Crosshair{})
	if s.Chart.Zoom != 999 || s.Chart.Offset != 999 {
		t.Error("Build must not mutate the chart view")
	}
}

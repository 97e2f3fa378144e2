package chart

import (
	"fmt"
	"math"

	"trading-demov1/internal/indicator"
	"trading-demov1/internal/model"
)

// Padding is the plot inset inside the canvas, in pixels.
type Padding struct {
	Left   float64 `json:"l"`
	Right  float64 `json:"r"`
	Top    float64 `json:"t"`
	Bottom float64 `json:"b"`
}

// DefaultPadding leaves room for the y axis on the left and the
// toolbar on top.
var DefaultPadding = Padding{Left: 52, Right: 14, Top: 56, Bottom: 28}

const (
	minCandlesToDraw = 10
	priceRangePad    = 0.08
	bodyWidthRatio   = 0.62
	gridRows         = 4

	colorUp        = "rgba(46,230,166,0.95)"
	colorUpWick    = "rgba(46,230,166,0.75)"
	colorDown      = "rgba(255,92,119,0.95)"
	colorDownWick  = "rgba(255,92,119,0.75)"
	colorGrid      = "rgba(255,255,255,0.06)"
	colorAxisText  = "rgba(155,176,195,0.9)"
	colorSMA20     = "rgba(75,211,255,0.85)"
	colorSMA50     = "rgba(255,255,255,0.55)"
	colorEMA20     = "rgba(255,215,105,0.70)"
	colorMarker    = "rgba(75,211,255,0.95)"
	colorPriceLine = "rgba(75,211,255,0.45)"
	colorPriceText = "rgba(75,211,255,0.92)"
	colorCrosshair = "rgba(255,255,255,0.10)"
)

// Line is a single stroked segment.
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color string  `json:"color"`
}

// Label is positioned text.
type Label struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color string  `json:"color"`
}

// CandleShape is one candlestick: wick segment plus body rectangle.
type CandleShape struct {
	X          float64 `json:"x"` // slot center
	WickTop    float64 `json:"wick_top"`
	WickBottom float64 `json:"wick_bottom"`
	BodyLeft   float64 `json:"body_left"`
	BodyTop    float64 `json:"body_top"`
	BodyWidth  float64 `json:"body_w"`
	BodyHeight float64 `json:"body_h"`
	Up         bool    `json:"up"`
}

// Point is one polyline vertex.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polyline is an indicator overlay segment run.
type Polyline struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// MarkerDot is a labeled annotation point.
type MarkerDot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color string  `json:"color"`
}

// Scene is the full draw list for one frame, in paint order.
type Scene struct {
	Width   float64 `json:"w"`
	Height  float64 `json:"h"`
	Loading bool    `json:"loading"`

	Grid       []Line        `json:"grid,omitempty"`
	AxisLabels []Label       `json:"axis_labels,omitempty"`
	Candles    []CandleShape `json:"candles,omitempty"`
	Overlays   []Polyline    `json:"overlays,omitempty"`
	Markers    []MarkerDot   `json:"markers,omitempty"`
	PriceLine  *Line         `json:"price_line,omitempty"`
	PriceLabel *Label        `json:"price_label,omitempty"`
	Crosshair  []Line        `json:"crosshair,omitempty"`
}

// Renderer computes scenes for a fixed padding.
type Renderer struct {
	Pad Padding
}

// NewRenderer returns a renderer with the default plot padding.
func NewRenderer() *Renderer {
	return &Renderer{Pad: DefaultPadding}
}

// Build computes the draw list for the state at the given canvas size.
// It never mutates the state.
func (r *Renderer) Build(s *model.SessionState, w, h float64, cross Crosshair) *Scene {
	if w < 320 {
		w = 320
	}
	if h < 260 {
		h = 260
	}
	sc := &Scene{Width: w, Height: h}

	candles := s.Candles
	if len(candles) < minCandlesToDraw {
		sc.Loading = true
		return sc
	}

	p := r.Pad
	plotW := w - p.Left - p.Right
	plotH := h - p.Top - p.Bottom

	start, end := VisibleWindow(len(candles), s.Chart)
	view := candles[start:end]
	if len(view) == 0 {
		sc.Loading = true
		return sc
	}

	minP := math.Inf(1)
	maxP := math.Inf(-1)
	for _, c := range view {
		minP = math.Min(minP, c.Low)
		maxP = math.Max(maxP, c.High)
	}
	if s.HasSimPrice {
		minP = math.Min(minP, s.SimPrice)
		maxP = math.Max(maxP, s.SimPrice)
	}
	pad := (maxP - minP) * priceRangePad
	minP -= pad
	maxP += pad
	if maxP == minP {
		// Flat series: avoid division by zero, draw in the middle.
		maxP = minP + 1
	}

	yOf := func(price float64) float64 {
		return p.Top + (maxP-price)*(plotH/(maxP-minP))
	}

	// Grid and price axis labels.
	for i := 0; i <= gridRows; i++ {
		y := p.Top + plotH*float64(i)/gridRows
		sc.Grid = append(sc.Grid, Line{X1: p.Left, Y1: y, X2: w - p.Right, Y2: y, Color: colorGrid})
		price := maxP - (maxP-minP)*float64(i)/gridRows
		sc.AxisLabels = append(sc.AxisLabels, Label{
			X: 8, Y: y + 4, Text: fmt.Sprintf("%.2f", price), Color: colorAxisText,
		})
	}

	xStep := plotW / float64(len(view))
	bodyW := math.Max(2, math.Floor(xStep*bodyWidthRatio))

	xs := make([]float64, len(view))
	closes := make([]float64, len(view))

	for i, c := range view {
		xCenter := p.Left + float64(i)*xStep + xStep/2
		xs[i] = xCenter
		closes[i] = c.Close

		up := c.Close >= c.Open
		yO := yOf(c.Open)
		yC := yOf(c.Close)
		top := math.Min(yO, yC)
		bot := math.Max(yO, yC)

		sc.Candles = append(sc.Candles, CandleShape{
			X:          xCenter,
			WickTop:    yOf(c.High),
			WickBottom: yOf(c.Low),
			BodyLeft:   math.Floor(xCenter - bodyW/2),
			BodyTop:    top,
			BodyWidth:  bodyW,
			BodyHeight: math.Max(1, bot-top),
			Up:         up,
		})
	}

	// Indicator overlays over the visible closes.
	if s.Chart.SMA20 {
		sc.appendOverlay("SMA20", colorSMA20, xs, indicator.SMA(closes, 20), yOf)
	}
	if s.Chart.SMA50 {
		sc.appendOverlay("SMA50", colorSMA50, xs, indicator.SMA(closes, 50), yOf)
	}
	if s.Chart.EMA20 {
		sc.appendOverlay("EMA20", colorEMA20, xs, indicator.EMA(closes, 20), yOf)
	}

	// Most recent markers, located by the nearest candle at or after
	// the marker time.
	marks := s.Markers
	if len(marks) > model.MarkerRenderCap {
		marks = marks[len(marks)-model.MarkerRenderCap:]
	}
	for _, m := range marks {
		idx := -1
		for i, c := range view {
			if c.Time >= m.Time {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		sc.Markers = append(sc.Markers, MarkerDot{
			X:     p.Left + float64(idx)*xStep + xStep/2,
			Y:     yOf(m.Price),
			Text:  m.Text,
			Color: colorMarker,
		})
	}

	// Simulated price guide line.
	if s.HasSimPrice {
		y := yOf(s.SimPrice)
		sc.PriceLine = &Line{X1: p.Left, Y1: y, X2: w - p.Right, Y2: y, Color: colorPriceLine}
		sc.PriceLabel = &Label{
			X: w - p.Right - 92, Y: y - 6,
			Text:  fmt.Sprintf("%.2f", s.SimPrice),
			Color: colorPriceText,
		}
	}

	// Crosshair at the pointer, only inside the plot area.
	if cross.Active &&
		cross.X >= p.Left && cross.X <= w-p.Right &&
		cross.Y >= p.Top && cross.Y <= h-p.Bottom {
		sc.Crosshair = []Line{
			{X1: p.Left, Y1: cross.Y, X2: w - p.Right, Y2: cross.Y, Color: colorCrosshair},
			{X1: cross.X, Y1: p.Top, X2: cross.X, Y2: h - p.Bottom, Color: colorCrosshair},
		}
	}

	return sc
}

func (sc *Scene) appendOverlay(name, color string, xs []float64, values []float64, yOf func(float64) float64) {
	var pts []Point
	for i, v := range values {
		if !indicator.Defined(v) {
			continue
		}
		pts = append(pts, Point{X: xs[i], Y: yOf(v)})
	}
	if len(pts) == 0 {
		return
	}
	sc.Overlays = append(sc.Overlays, Polyline{Name: name, Color: color, Points: pts})
}

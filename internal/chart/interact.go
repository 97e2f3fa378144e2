package chart

import (
	"math"

	"trading-demov1/internal/model"
)

const wheelZoomStep = 10

// Crosshair is the last known pointer position over the plot.
type Crosshair struct {
	Active bool    `json:"active"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ApplyWheel adjusts zoom by wheelZoomStep per notch. Positive notches
// zoom out (more candles visible).
func ApplyWheel(v *model.ChartView, notches int) {
	v.Zoom = ClampZoom(ClampZoom(v.Zoom) + notches*wheelZoomStep)
}

// ApplyDrag pans the view: the horizontal pixel delta since drag start
// converts to candles via zoom/plotWidth. Dragging right (positive dx)
// moves the window back in time. The upper bound is applied against
// the current candle total.
func ApplyDrag(v *model.ChartView, startOffset int, dxPx, plotW float64, total int) {
	if plotW < 1 {
		plotW = 1
	}
	zoom := ClampZoom(v.Zoom)
	candlesPerPx := float64(zoom) / plotW
	shift := int(math.Round(-dxPx * candlesPerPx))
	v.Offset = ClampOffset(startOffset+shift, total, zoom)
}

// ApplyPinch rescales zoom inversely with the ratio of the current to
// the initial finger distance.
func ApplyPinch(v *model.ChartView, startZoom int, startDist, dist float64) {
	if startDist < 10 {
		startDist = 10
	}
	ratio := dist / startDist
	if ratio <= 0 {
		return
	}
	v.Zoom = ClampZoom(int(math.Floor(float64(startZoom) / ratio)))
}

// ResetView restores the default zoom and offset without touching the
// indicator toggles.
func ResetView(v *model.ChartView) {
	v.Zoom = model.ZoomDefault
	v.Offset = 0
}

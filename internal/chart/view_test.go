package chart

import (
	"testing"

	"trading-demov1/internal/model"
)

func TestClampZoom(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{500, 260},
		{5, 40},
		{40, 40},
		{260, 260},
		{120, 120},
	}
	for _, tc := range cases {
		if got := ClampZoom(tc.in); got != tc.want {
			t.Errorf("ClampZoom(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampOffset(t *testing.T) {
	cases := []struct {
		offset, total, zoom, want int
	}{
		{-3, 800, 120, 0},
		{0, 800, 120, 0},
		{1000, 800, 120, 680}, // beyond total-zoom clamps to max
		{680, 800, 120, 680},
		{50, 100, 120, 0}, // fewer candles than zoom
	}
	for _, tc := range cases {
		if got := ClampOffset(tc.offset, tc.total, tc.zoom); got != tc.want {
			t.Errorf("ClampOffset(%d,%d,%d) = %d, want %d",
				tc.offset, tc.total, tc.zoom, got, tc.want)
		}
	}
}

func TestVisibleWindow(t *testing.T) {
	v := model.ChartView{Zoom: 120, Offset: 0}
	start, end := VisibleWindow(800, v)
	if start != 680 || end != 800 {
		t.Errorf("window = [%d,%d), want [680,800)", start, end)
	}

	v.Offset = 100
	start, end = VisibleWindow(800, v)
	if start != 580 || end != 700 {
		t.Errorf("panned window = [%d,%d), want [580,700)", start, end)
	}

	// Short series: window covers everything.
	start, end = VisibleWindow(60, model.ChartView{Zoom: 120})
	if start != 0 || end != 60 {
		t.Errorf("short-series window = [%d,%d), want [0,60)", start, end)
	}
}

func TestApplyWheel(t *testing.T) {
	v := model.ChartView{Zoom: 120}
	ApplyWheel(&v, 1)
	if v.Zoom != 130 {
		t.Errorf("zoom = %d, want 130", v.Zoom)
	}
	ApplyWheel(&v, -3)
	if v.Zoom != 100 {
		t.Errorf("zoom = %d, want 100", v.Zoom)
	}

	v.Zoom = 255
	ApplyWheel(&v, 1)
	if v.Zoom != 260 {
		t.Errorf("zoom = %d, want clamped 260", v.Zoom)
	}
	v.Zoom = 45
	ApplyWheel(&v, -1)
	if v.Zoom != 40 {
		t.Errorf("zoom = %d, want clamped 40", v.Zoom)
	}
}

func TestApplyDrag(t *testing.T) {
	v := model.ChartView{Zoom: 100}

	// Drag left 100px on a 1000px plot: 100 * (100/1000) = 10 candles
	// toward the latest, clamped at 0 from a zero start.
	ApplyDrag(&v, 0, 100, 1000, 800)
	if v.Offset != 0 {
		t.Errorf("offset = %d, want 0 (clamped)", v.Offset)
	}

	// Drag right 100px pans back in time by 10 candles.
	ApplyDrag(&v, 0, -100, 1000, 800)
	if v.Offset != 10 {
		t.Errorf("offset = %d, want 10", v.Offset)
	}

	// Huge drag clamps to total-zoom.
	ApplyDrag(&v, 0, -1e6, 1000, 800)
	if v.Offset != 700 {
		t.Errorf("offset = %d, want 700", v.Offset)
	}
}

func TestApplyPinch(t *testing.T) {
	v := model.ChartView{Zoom: 120}

	// Fingers twice as far apart halves the candle count.
	ApplyPinch(&v, 120, 100, 200)
	if v.Zoom != 60 {
		t.Errorf("zoom = %d, want 60", v.Zoom)
	}

	// Fingers closing zooms out, clamped at the max.
	ApplyPinch(&v, 120, 200, 50)
	if v.Zoom != 260 {
		t.Errorf("zoom = %d, want 260", v.Zoom)
	}

	// Degenerate start distance uses the floor of 10.
	ApplyPinch(&v, 100, 1, 10)
	if v.Zoom != 100 {
		t.Errorf("zoom = %d, want 100", v.Zoom)
	}
}

func TestResetView(t *testing.T) {
	v := model.ChartView{Zoom: 40, Offset: 300, SMA50: true}
	ResetView(&v)
	if v.Zoom != model.ZoomDefault || v.Offset != 0 {
		t.Errorf("view = %+v, want default zoom and zero offset", v)
	}
	if !v.SMA50 {
		t.Error("ResetView must not touch indicator toggles")
	}
}

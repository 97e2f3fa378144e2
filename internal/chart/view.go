// Package chart turns session state into a serializable draw list
// (Scene) and implements the pointer/touch interaction math. Nothing
// in this package touches financial state.
package chart

import "trading-demov1/internal/model"

// ClampZoom bounds the visible candle count.
func ClampZoom(z int) int {
	if z < model.ZoomMin {
		return model.ZoomMin
	}
	if z > model.ZoomMax {
		return model.ZoomMax
	}
	return z
}

// ClampOffset bounds the pan offset to [0, total-zoom].
func ClampOffset(offset, total, zoom int) int {
	max := total - zoom
	if max < 0 {
		max = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}

// VisibleWindow returns the [start, end) index range of the candles
// drawn for the given view: the zoom-many candles ending offset
// candles back from the latest.
func VisibleWindow(total int, view model.ChartView) (int, int) {
	zoom := ClampZoom(view.Zoom)
	offset := ClampOffset(view.Offset, total, zoom)

	start := total - zoom - offset
	if start < 0 {
		start = 0
	}
	end := start + zoom
	if end > total {
		end = total
	}
	return start, end
}

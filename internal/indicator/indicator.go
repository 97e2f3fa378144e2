// Package indicator computes moving-average overlays for the chart.
//
// Series functions produce one output per input index. Indices before
// the window is full are NaN and are not plotted; use Defined to test.
package indicator

import "math"

// Undefined is the sentinel for indices where the indicator has no
// value yet.
var Undefined = math.NaN()

// Defined reports whether v is a plottable indicator value.
func Defined(v float64) bool { return !math.IsNaN(v) }

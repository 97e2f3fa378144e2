package indicator

// SMA returns the simple moving average of values over the given
// period. Uses a rolling sum for an O(n) pass; out[i] is Undefined
// until the window is full at index period-1.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = Undefined
		}
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = Undefined
		}
	}
	return out
}

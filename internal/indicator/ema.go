package indicator

// EMA returns the exponential moving average of values with smoothing
// factor 2/(period+1). The running value seeds from the first sample
// and emission starts at the second, so out[0] is Undefined.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) == 0 {
		for i := range out {
			out[i] = Undefined
		}
		return out
	}

	k := 2.0 / float64(period+1)
	prev := values[0]
	out[0] = Undefined
	for i := 1; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

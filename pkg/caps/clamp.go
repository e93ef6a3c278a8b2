package caps

// ClampToGranularity clamps v into [lo, hi] and then snaps it down onto the
// grid lo + k*g. The result is always within bounds, so clamping an already
// clamped value returns it unchanged. A non-positive g is treated as 1.
func ClampToGranularity(v, lo, hi, g int) int {
	if g <= 0 {
		g = 1
	}
	if hi < lo {
		hi = lo
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return lo + ((v-lo)/g)*g
}

// ClampInterval clamps v into [lo, hi].
func ClampInterval(v, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

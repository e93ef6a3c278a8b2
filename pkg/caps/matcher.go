package caps

import (
	"math"

	"github.com/thesyncim/libgodshow/pkg/format"
)

// Matcher scores device capabilities against a free-form width, height and
// frame rate request. The weights are tuning constants.
type Matcher struct {
	// IntervalWeight is the score cost of one interval unit of frame rate miss.
	IntervalWeight int64

	// Rate ranks formats, lower is better. Capabilities rated at or above
	// format.RatingUnsupported are never selected.
	Rate func(format.VideoFormat) int
}

// DefaultMatcher uses the weights the native engine integration has always used.
var DefaultMatcher = Matcher{
	IntervalWeight: 10,
	Rate:           format.Rating,
}

// Candidate is a scored capability.
type Candidate struct {
	Index      int
	Capability Capability
	Width      int
	Height     int
	Interval   int64
	Score      uint64
}

// Best returns the capability of dev that best fits a width x height request at
// fps. ok is false when no capability passes the format filter. Equal scores
// keep the capability enumerated first.
func (m Matcher) Best(dev Device, width, height, fps int) (best Candidate, ok bool, err error) {
	if fps <= 0 {
		return Candidate{}, false, ErrInvalidFrameRate
	}
	if width <= 0 || height <= 0 {
		return Candidate{}, false, nil
	}

	interval := IntervalForFPS(fps)
	for i, c := range dev.Caps {
		cand, pass := m.score(c, width, height, interval)
		if !pass {
			continue
		}
		cand.Index = i
		if !ok || cand.Score < best.Score {
			best = cand
			ok = true
		}
	}
	return best, ok, nil
}

// Score returns the candidate c would produce for the request. pass is false
// when the format of c is filtered out.
func (m Matcher) Score(c Capability, width, height, fps int) (cand Candidate, pass bool) {
	if fps <= 0 || width <= 0 || height <= 0 {
		return Candidate{}, false
	}
	return m.score(c, width, height, IntervalForFPS(fps))
}

func (m Matcher) score(c Capability, width, height int, interval int64) (Candidate, bool) {
	rating := m.rate(c.Format)
	if rating >= format.RatingUnsupported {
		return Candidate{}, false
	}

	w, h := TrialSize(c, width, height)
	clamped := c.ClampInterval(interval)

	area := int64(width) * int64(height)
	diff := area - int64(w)*int64(h)
	if diff < 0 {
		diff = -diff
	}
	if diff > math.MaxUint32 {
		diff = math.MaxUint32
	}
	score := uint64(diff) * uint64(diff)

	miss := interval - clamped
	if miss < 0 {
		miss = -miss
	}
	score = satAdd(score, satMul(uint64(miss), uint64(m.intervalWeight())))
	if rating > 0 {
		score = satAdd(score, uint64(rating))
	}

	return Candidate{
		Capability: c,
		Width:      w,
		Height:     h,
		Interval:   clamped,
		Score:      score,
	}, true
}

// TrialSize fits width x height into c while keeping the aspect ratio of the
// request. Both axes are clamped; the axis that needed the smaller correction
// keeps its clamped value and the other is recomputed from the aspect ratio,
// clamped again and snapped to the granularity grid.
func TrialSize(c Capability, width, height int) (w, h int) {
	xlo, xhi := c.WidthRange()
	ylo, yhi := c.HeightRange()
	aspect := float64(width) / float64(height)

	cw := clampRange(width, xlo, xhi)
	ch := clampRange(height, ylo, yhi)
	dx := int64(cw - width)
	dy := int64(ch - height)

	if dx*dx <= dy*dy {
		w = cw
		h = clampRange(int(math.Round(float64(cw)/aspect)), ylo, yhi)
	} else {
		h = ch
		w = clampRange(int(math.Round(float64(ch)*aspect)), xlo, xhi)
	}
	return c.ClampWidth(w), c.ClampHeight(h)
}

func (m Matcher) rate(f format.VideoFormat) int {
	if m.Rate == nil {
		return format.Rating(f)
	}
	return m.Rate(f)
}

func (m Matcher) intervalWeight() int64 {
	if m.IntervalWeight < 0 {
		return 0
	}
	return m.IntervalWeight
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}

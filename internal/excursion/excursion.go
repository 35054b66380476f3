// Package excursion implements the amplitude-of-excursion metric family
// (MAGE and friends) via turning-point analysis of a glucose trace.
//
// The scan finds local peaks and valleys from sign changes in the first
// difference, merges turning points whose excursions fall below a noise
// threshold, and aggregates the amplitudes of the surviving excursions.
package excursion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/glucolab/agata/internal/trace"
)

// Params configures the analyzer. A zero Threshold means "one standard
// deviation of the trace", the conventional MAGE noise floor.
type Params struct {
	Threshold float64 // mg/dL; excursions at or below this are noise
}

// Validate rejects a negative threshold. Invalid parameters are a
// configuration error and fail before any scanning happens.
func (p Params) Validate() error {
	if p.Threshold < 0 {
		return fmt.Errorf("excursion: Threshold must not be negative, got %v", p.Threshold)
	}
	return nil
}

// Result carries the amplitude aggregates. Metrics that cannot be
// computed (monotone trace, fewer than two surviving turning points, no
// qualifying excursion) are NaN, never zero.
type Result struct {
	MagePlus  float64 `json:"mage_plus_index"`  // mean upward amplitude above threshold
	MageMinus float64 `json:"mage_minus_index"` // mean downward amplitude above threshold (positive)
	Mage      float64 `json:"mage_index"`       // mean magnitude across both directions
	Frequency float64 `json:"ef_index"`         // qualifying excursions per day of observation

	// TurningPoints is the number of extrema that survive merging,
	// reported for auditability.
	TurningPoints int `json:"turning_points"`
}

type direction int

const (
	valley direction = iota
	peak
)

// turningPoint is an intermediate artifact of the scan; it never leaves
// the package.
type turningPoint struct {
	value float64
	dir   direction
}

// Analyze computes the excursion amplitude metrics for tr.
func Analyze(tr *trace.Trace, p Params) (Result, error) {
	undefined := math.NaN()
	res := Result{MagePlus: undefined, MageMinus: undefined, Mage: undefined, Frequency: undefined}

	if err := p.Validate(); err != nil {
		return res, err
	}

	threshold := p.Threshold
	if threshold == 0 {
		vals := tr.Values()
		if len(vals) < 2 {
			return res, nil
		}
		threshold = stat.StdDev(vals, nil)
	}

	tps := mergeTurningPoints(findTurningPoints(tr), threshold)
	res.TurningPoints = len(tps)
	if len(tps) < 2 {
		return res, nil
	}

	var up, down []float64
	for i := 1; i < len(tps); i++ {
		amp := tps[i].value - tps[i-1].value
		if amp > threshold {
			up = append(up, amp)
		} else if -amp > threshold {
			down = append(down, -amp)
		}
	}

	if len(up) > 0 {
		res.MagePlus = stat.Mean(up, nil)
	}
	if len(down) > 0 {
		res.MageMinus = stat.Mean(down, nil)
	}
	if len(up)+len(down) > 0 {
		res.Mage = stat.Mean(append(append([]float64{}, up...), down...), nil)
		if d := tr.Duration(); d > 0 {
			res.Frequency = float64(len(up)+len(down)) / (d.Hours() / 24)
		}
	}
	return res, nil
}

// findTurningPoints scans for interior extrema. Missing samples split the
// trace into independent monotone runs: the first difference is never
// taken across a gap, and run endpoints are not extrema, so a gap never
// manufactures a turning point.
func findTurningPoints(tr *trace.Trace) []turningPoint {
	var tps []turningPoint
	samples := tr.Samples()

	i := 0
	for i < len(samples) {
		// Skip to the next run of contiguous present samples.
		for i < len(samples) && samples[i].Missing {
			i++
		}
		j := i
		for j < len(samples) && !samples[j].Missing {
			j++
		}
		tps = append(tps, runTurningPoints(samples[i:j])...)
		i = j
	}
	return tps
}

// runTurningPoints finds sign changes of the first difference within one
// gap-free run. Flat stretches inherit the preceding direction, so a
// plateau at a summit yields a single peak at its last sample.
func runTurningPoints(run []trace.Sample) []turningPoint {
	var tps []turningPoint
	prevSign := 0
	for k := 1; k < len(run); k++ {
		d := run[k].Value - run[k-1].Value
		sign := 0
		if d > 0 {
			sign = 1
		} else if d < 0 {
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if prevSign == 1 && sign == -1 {
			tps = append(tps, turningPoint{value: run[k-1].Value, dir: peak})
		} else if prevSign == -1 && sign == 1 {
			tps = append(tps, turningPoint{value: run[k-1].Value, dir: valley})
		}
		prevSign = sign
	}
	return tps
}

// mergeTurningPoints repeatedly discards the weaker endpoint of the
// smallest sub-threshold excursion, collapsing same-direction neighbors
// to the more extreme one, until every remaining excursion exceeds the
// threshold. The fixpoint makes the merge idempotent: a second pass finds
// nothing left to do.
func mergeTurningPoints(tps []turningPoint, threshold float64) []turningPoint {
	tps = collapseSameDirection(tps)

	for len(tps) >= 2 {
		// Locate the smallest adjacent excursion.
		minIdx, minAmp := -1, math.Inf(1)
		for i := 1; i < len(tps); i++ {
			amp := math.Abs(tps[i].value - tps[i-1].value)
			if amp < minAmp {
				minIdx, minAmp = i, amp
			}
		}
		if minAmp > threshold {
			break
		}

		// Discard whichever endpoint of the pair has the weaker excursion
		// on its far side; endpoints with no far side go first.
		a, b := minIdx-1, minIdx
		var drop int
		switch {
		case a == 0 && b == len(tps)-1:
			// Only this pair remains and it is noise: nothing survives.
			return nil
		case a == 0:
			drop = a
		case b == len(tps)-1:
			drop = b
		default:
			ampA := math.Abs(tps[a].value - tps[a-1].value)
			ampB := math.Abs(tps[b+1].value - tps[b].value)
			if ampA <= ampB {
				drop = a
			} else {
				drop = b
			}
		}

		tps = append(tps[:drop], tps[drop+1:]...)
		tps = collapseSameDirection(tps)
	}
	return tps
}

// collapseSameDirection folds adjacent turning points of equal direction
// into the more extreme one, restoring peak/valley alternation.
func collapseSameDirection(tps []turningPoint) []turningPoint {
	out := tps[:0:0]
	for _, tp := range tps {
		if len(out) > 0 && out[len(out)-1].dir == tp.dir {
			last := &out[len(out)-1]
			if (tp.dir == peak && tp.value > last.value) ||
				(tp.dir == valley && tp.value < last.value) {
				last.value = tp.value
			}
			continue
		}
		out = append(out, tp)
	}
	return out
}

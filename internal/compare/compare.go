// Package compare measures the agreement between two glucose traces,
// typically a reference device and a candidate device or predictor.
//
// Traces are aligned on their shared timestamps. A timestamp counts as
// a valid pair only when both sides carry a reading; a missing value on
// either side drops the whole pair, it is never imputed. When no valid
// pairs remain every figure is NaN, which keeps "nothing to measure"
// distinct from "perfect agreement."
package compare

import (
	"math"

	"github.com/glucolab/agata/internal/trace"
)

// Result holds the agreement figures for one reference/candidate pair.
// Pairs is the number of timestamps where both traces had a reading.
type Result struct {
	Rmse  float64 `json:"rmse"`
	GRmse float64 `json:"g_rmse"`
	Mard  float64 `json:"mard"`
	Mad   float64 `json:"mad"`
	Cod   float64 `json:"cod"`
	Pairs int     `json:"valid_pairs"`
}

// Compare aligns reference and candidate on their shared timestamps and
// computes the agreement figures over the valid pairs.
//
// Rmse, Mad and Pairs do not depend on which trace is passed first.
// GRmse, Mard and Cod treat the first argument as ground truth.
func Compare(reference, candidate *trace.Trace) Result {
	refs, cands := alignedPairs(reference, candidate)

	n := len(refs)
	if n == 0 {
		return Result{
			Rmse:  math.NaN(),
			GRmse: math.NaN(),
			Mard:  math.NaN(),
			Mad:   math.NaN(),
			Cod:   math.NaN(),
		}
	}

	var sumSq, sumWSq, sumAbs, sumRel, sumRef float64
	relPairs := 0
	for i := range refs {
		d := cands[i] - refs[i]
		sumSq += d * d
		sumWSq += d * d * clinicalPenalty(refs[i], d)
		sumAbs += math.Abs(d)
		// A zero reference has no defined relative difference; it
		// contributes to every other figure but not to Mard.
		if refs[i] != 0 {
			sumRel += math.Abs(d) / refs[i]
			relPairs++
		}
		sumRef += refs[i]
	}

	mean := sumRef / float64(n)
	var sumVar float64
	for _, r := range refs {
		sumVar += (r - mean) * (r - mean)
	}
	cod := math.NaN()
	if sumVar > 0 {
		cod = 100.0 * (1.0 - sumSq/sumVar)
	}
	mard := math.NaN()
	if relPairs > 0 {
		mard = 100.0 * sumRel / float64(relPairs)
	}

	return Result{
		Rmse:  math.Sqrt(sumSq / float64(n)),
		GRmse: math.Sqrt(sumWSq / float64(n)),
		Mard:  mard,
		Mad:   sumAbs / float64(n),
		Cod:   cod,
		Pairs: n,
	}
}

// alignedPairs walks the reference and looks each timestamp up in the
// candidate. Only timestamps where both readings are present survive.
func alignedPairs(reference, candidate *trace.Trace) (refs, cands []float64) {
	for i := 0; i < reference.Len(); i++ {
		s := reference.At(i)
		if s.Missing {
			continue
		}
		v, ok := candidate.ValueAt(s.Time)
		if !ok {
			continue
		}
		refs = append(refs, s.Value)
		cands = append(cands, v)
	}
	return refs, cands
}

// clinicalPenalty weights a squared error by how dangerous its
// direction is. Overestimating a hypoglycemic reference or
// underestimating a hyperglycemic one can hide the state that needs
// treatment, so those errors cost more than the same magnitude in a
// safe direction.
func clinicalPenalty(ref, d float64) float64 {
	return 1 + 1.5*rampDown(ref, 60, 80)*errRamp(d) + rampUp(ref, 180, 250)*errRamp(-d)
}

// errRamp grows cubically from 0 to 1 as the error in the dangerous
// direction runs from 0 to 40 mg/dL.
func errRamp(d float64) float64 {
	if d <= 0 {
		return 0
	}
	if d >= 40 {
		return 1
	}
	t := d / 40
	return t * t * t
}

// rampDown is 1 at or below lo, 0 at or above hi, linear between.
func rampDown(g, lo, hi float64) float64 {
	if g <= lo {
		return 1
	}
	if g >= hi {
		return 0
	}
	return (hi - g) / (hi - lo)
}

// rampUp is 0 at or below lo, 1 at or above hi, linear between.
func rampUp(g, lo, hi float64) float64 {
	if g <= lo {
		return 0
	}
	if g >= hi {
		return 1
	}
	return (g - lo) / (hi - lo)
}

// Package timeinrange computes the time-in-range partition of a glucose
// trace against a resolved glycemic target profile.
package timeinrange

import (
	"math"

	"github.com/glucolab/agata/internal/target"
	"github.com/glucolab/agata/internal/trace"
)

// Result holds the time-in-range percentages. Each figure is the share
// of observed (non-missing) samples in the band; all are NaN when the
// trace has no observed sample.
type Result struct {
	Target      float64 `json:"time_in_target"`
	TightTarget float64 `json:"time_in_tight_target"`
	Hypo        float64 `json:"time_in_hypoglycemia"`
	L1Hypo      float64 `json:"time_in_l1_hypoglycemia"`
	L2Hypo      float64 `json:"time_in_l2_hypoglycemia"`
	Hyper       float64 `json:"time_in_hyperglycemia"`
	L1Hyper     float64 `json:"time_in_l1_hyperglycemia"`
	L2Hyper     float64 `json:"time_in_l2_hyperglycemia"`
}

// Compute partitions the observed samples of tr by the profile's bands.
func Compute(tr *trace.Trace, prof target.Profile) Result {
	vals := tr.Values()
	if len(vals) == 0 {
		nan := math.NaN()
		return Result{
			Target: nan, TightTarget: nan,
			Hypo: nan, L1Hypo: nan, L2Hypo: nan,
			Hyper: nan, L1Hyper: nan, L2Hyper: nan,
		}
	}

	var inTarget, inTight, hypo, l2hypo, hyper, l2hyper int
	for _, v := range vals {
		switch {
		case prof.Hypo(v):
			hypo++
			if v < prof.VeryLow {
				l2hypo++
			}
		case prof.Hyper(v):
			hyper++
			if v > prof.VeryHigh {
				l2hyper++
			}
		default:
			inTarget++
			if prof.InTightTarget(v) {
				inTight++
			}
		}
	}

	pct := func(c int) float64 { return 100 * float64(c) / float64(len(vals)) }
	return Result{
		Target:      pct(inTarget),
		TightTarget: pct(inTight),
		Hypo:        pct(hypo),
		L1Hypo:      pct(hypo - l2hypo),
		L2Hypo:      pct(l2hypo),
		Hyper:       pct(hyper),
		L1Hyper:     pct(hyper - l2hyper),
		L2Hyper:     pct(l2hyper),
	}
}

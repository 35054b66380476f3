// Package transform computes glycemic transformation indices. Each
// index maps glucose readings through a nonlinear penalty function and
// summarizes the result, so that deviations from euglycemia are
// weighted more heavily than readings near target.
package transform

import (
	"math"

	"github.com/glucolab/agata/internal/trace"
)

// GRADE band edges in mg/dL. Readings below the lower edge count to the
// hypoglycemic share, readings above the upper edge to the hyperglycemic
// share, the rest to the euglycemic share.
const (
	gradeHypoEdge  = 70.0
	gradeHyperEdge = 140.0
)

// gradeScore is the per-sample GRADE penalty. Input is mg/dL; the inner
// division by 18 converts to mmol/L.
func gradeScore(g float64) float64 {
	d := math.Log10(math.Log10(g/18.0)) + 0.16
	return 425.0 * d * d
}

// Grade returns the mean GRADE score of the trace, or NaN when no
// samples are observed.
func Grade(tr *trace.Trace) float64 {
	values := tr.Values()
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, g := range values {
		sum += gradeScore(g)
	}
	return sum / float64(len(values))
}

// GradeHypo returns the percentage of the total GRADE score contributed
// by readings below 70 mg/dL.
func GradeHypo(tr *trace.Trace) float64 {
	return gradeShare(tr, func(g float64) bool { return g < gradeHypoEdge })
}

// GradeEu returns the percentage of the total GRADE score contributed
// by readings in [70, 140] mg/dL.
func GradeEu(tr *trace.Trace) float64 {
	return gradeShare(tr, func(g float64) bool { return g >= gradeHypoEdge && g <= gradeHyperEdge })
}

// GradeHyper returns the percentage of the total GRADE score
// contributed by readings above 140 mg/dL.
func GradeHyper(tr *trace.Trace) float64 {
	return gradeShare(tr, func(g float64) bool { return g > gradeHyperEdge })
}

func gradeShare(tr *trace.Trace, in func(float64) bool) float64 {
	values := tr.Values()
	if len(values) == 0 {
		return math.NaN()
	}
	var total, part float64
	for _, g := range values {
		s := gradeScore(g)
		total += s
		if in(g) {
			part += s
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return 100.0 * part / total
}

// HypoIndex returns the hypoglycemic index, a power-weighted sum of
// shortfalls below 80 mg/dL normalized by sample count.
func HypoIndex(tr *trace.Trace) float64 {
	values := tr.Values()
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, g := range values {
		if g < 80 {
			d := 80 - g
			sum += d * d
		}
	}
	return sum / (float64(len(values)) * 30.0)
}

// HyperIndex returns the hyperglycemic index, a power-weighted sum of
// overshoots above 140 mg/dL normalized by sample count.
func HyperIndex(tr *trace.Trace) float64 {
	values := tr.Values()
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, g := range values {
		if g > 140 {
			sum += math.Pow(g-140, 1.1)
		}
	}
	return sum / (float64(len(values)) * 30.0)
}

// Igc returns the index of glycemic control, the sum of the
// hypoglycemic and hyperglycemic indices.
func Igc(tr *trace.Trace) float64 {
	return HypoIndex(tr) + HyperIndex(tr)
}

// MrIndex returns the mean of the per-sample MR transformation, which
// penalizes the cubed log-distance from 120 mg/dL.
func MrIndex(tr *trace.Trace) float64 {
	values := tr.Values()
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, g := range values {
		sum += 1000.0 * math.Pow(math.Abs(math.Log10(g/120.0)), 3)
	}
	return sum / float64(len(values))
}

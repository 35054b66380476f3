// Package variability computes glucose variability metrics: the
// closed-form catalog (mean, std, CV, IQR, AUC, GMI, J-index, COGI and
// the daily decompositions) and the lag-differencing family (CONGA,
// MODD) that reasons about time alignment explicitly.
//
// Metrics that cannot be computed from the available data come back as
// NaN. That is a result, not an error: "not enough data" is clinically
// different from zero.
package variability

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/glucolab/agata/internal/trace"
)

// DefaultCongaLag is the conventional CONGA(1) lag.
const DefaultCongaLag = time.Hour

// ModdLag is the day offset MODD compares against. Fixed by definition.
const ModdLag = 24 * time.Hour

// Mean returns the mean glucose in mg/dL.
func Mean(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// Median returns the median glucose in mg/dL.
func Median(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return percentile(vals, 0.5)
}

// percentile computes a linearly interpolated percentile of sorted data,
// the same convention CGM reference implementations use.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Std returns the sample standard deviation of glucose.
func Std(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

// CV returns the coefficient of variation as a percentage.
func CV(tr *trace.Trace) float64 {
	m := Mean(tr)
	s := Std(tr)
	if math.IsNaN(m) || math.IsNaN(s) || m == 0 {
		return math.NaN()
	}
	return 100 * s / m
}

// Range returns max minus min glucose.
func Range(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// IQR returns the interquartile range (75th minus 25th percentile,
// linearly interpolated).
func IQR(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return percentile(vals, 0.75) - percentile(vals, 0.25)
}

// AUC returns the trapezoidal area under the glucose curve in mg/dL·min.
// Only stretches between adjacent present samples contribute; the curve
// is never interpolated across a missing sample.
func AUC(tr *trace.Trace) float64 {
	samples := tr.Samples()
	area := 0.0
	pairs := 0
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		if a.Missing || b.Missing {
			continue
		}
		dt := b.Time.Sub(a.Time).Minutes()
		area += (a.Value + b.Value) / 2 * dt
		pairs++
	}
	if pairs == 0 {
		return math.NaN()
	}
	return area
}

// GMI returns the glucose management indicator, an A1C estimate from
// mean glucose.
func GMI(tr *trace.Trace) float64 {
	return 3.31 + 0.02392*Mean(tr)
}

// JIndex returns Wojcicki's J-index, 0.001·(mean+std)².
func JIndex(tr *trace.Trace) float64 {
	m, s := Mean(tr), Std(tr)
	if math.IsNaN(m) || math.IsNaN(s) {
		return math.NaN()
	}
	return 0.001 * (m + s) * (m + s)
}

// COGI returns the continuous glucose monitoring index, a 0-100 composite
// of time in range, time below range, and variability. The component
// rescalings follow the published definition: TIR maps through directly,
// TBR saturates at 15%, CV is full marks at 18% and zero at 108%.
func COGI(tr *trace.Trace) float64 {
	vals := tr.Values()
	if len(vals) < 2 {
		return math.NaN()
	}
	inRange, below := 0, 0
	for _, v := range vals {
		switch {
		case v < 70:
			below++
		case v <= 180:
			inRange++
		}
	}
	n := float64(len(vals))
	tir := 100 * float64(inRange) / n
	tbr := 100 * float64(below) / n

	fTBR := 100 - (100/15.0)*math.Min(tbr, 15)
	cv := CV(tr)
	fCV := math.Max(0, math.Min(100, (108-cv)*100/90))

	return 0.5*tir + 0.35*fTBR + 0.15*fCV
}

// lagDiffs collects value(t+lag)−value(t) for every sample whose exact
// +lag counterpart exists in the trace with both sides present. Samples
// without a counterpart are excluded, never imputed.
func lagDiffs(tr *trace.Trace, lag time.Duration) []float64 {
	var diffs []float64
	for _, s := range tr.Samples() {
		if s.Missing {
			continue
		}
		later, ok := tr.ValueAt(s.Time.Add(lag))
		if !ok {
			continue
		}
		diffs = append(diffs, later-s.Value)
	}
	return diffs
}

// Conga returns the continuous overall net glycemic action at the given
// lag: the sample standard deviation of the exact-lag difference series.
// A non-positive lag is a configuration error. Fewer than two valid
// differences yield NaN.
func Conga(tr *trace.Trace, lag time.Duration) (float64, error) {
	if lag <= 0 {
		return 0, fmt.Errorf("variability: conga lag must be positive, got %v", lag)
	}
	diffs := lagDiffs(tr, lag)
	if len(diffs) < 2 {
		return math.NaN(), nil
	}
	return stat.StdDev(diffs, nil), nil
}

// Modd returns the mean of daily differences: the mean absolute
// difference between samples exactly 24 hours apart. NaN when no sample
// has a next-day counterpart.
func Modd(tr *trace.Trace) float64 {
	diffs := lagDiffs(tr, ModdLag)
	if len(diffs) == 0 {
		return math.NaN()
	}
	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	return stat.Mean(abs, nil)
}

// SddmIndex returns the standard deviation of daily mean glucose. Days
// with no observed value are skipped; fewer than two usable days is NaN.
func SddmIndex(tr *trace.Trace) float64 {
	var means []float64
	for _, day := range tr.Days() {
		if m := Mean(day); !math.IsNaN(m) {
			means = append(means, m)
		}
	}
	if len(means) < 2 {
		return math.NaN()
	}
	return stat.StdDev(means, nil)
}

// SdwIndex returns the mean of within-day standard deviations. Days too
// short for a standard deviation are skipped; no usable day is NaN.
func SdwIndex(tr *trace.Trace) float64 {
	var stds []float64
	for _, day := range tr.Days() {
		if s := Std(day); !math.IsNaN(s) {
			stds = append(stds, s)
		}
	}
	if len(stds) == 0 {
		return math.NaN()
	}
	return stat.Mean(stds, nil)
}

// StdGlucoseRoc returns the standard deviation of the glucose rate of
// change in mg/dL per minute, computed between adjacent present samples.
func StdGlucoseRoc(tr *trace.Trace) float64 {
	samples := tr.Samples()
	var rocs []float64
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		if a.Missing || b.Missing {
			continue
		}
		dt := b.Time.Sub(a.Time).Minutes()
		if dt <= 0 {
			continue
		}
		rocs = append(rocs, (b.Value-a.Value)/dt)
	}
	if len(rocs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(rocs, nil)
}

// Package risk computes glycemic risk indices (LBGI, HBGI, BGRI, ADRR,
// GRI) and the per-day min/max risk grid classification.
package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/glucolab/agata/internal/trace"
)

// riskSpace maps a glucose value onto the symmetrized Kovatchev risk
// scale. Negative values are hypoglycemic risk, positive hyperglycemic.
func riskSpace(g float64) float64 {
	return 1.509 * (math.Pow(math.Log(g), 1.084) - 5.381)
}

// lowRisk returns the low blood glucose risk contribution of one value.
func lowRisk(g float64) float64 {
	if f := riskSpace(g); f < 0 {
		return 10 * f * f
	}
	return 0
}

// highRisk returns the high blood glucose risk contribution of one value.
func highRisk(g float64) float64 {
	if f := riskSpace(g); f > 0 {
		return 10 * f * f
	}
	return 0
}

// LBGI returns the low blood glucose index, the mean hypoglycemic risk
// across the trace.
func LBGI(tr *trace.Trace) float64 {
	return meanRisk(tr, lowRisk)
}

// HBGI returns the high blood glucose index, the mean hyperglycemic risk
// across the trace.
func HBGI(tr *trace.Trace) float64 {
	return meanRisk(tr, highRisk)
}

// BGRI returns the total blood glucose risk index, LBGI plus HBGI.
func BGRI(tr *trace.Trace) float64 {
	return LBGI(tr) + HBGI(tr)
}

func meanRisk(tr *trace.Trace, risk func(float64) float64) float64 {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	contributions := make([]float64, len(vals))
	for i, v := range vals {
		contributions[i] = risk(v)
	}
	return stat.Mean(contributions, nil)
}

// ADRR returns the average daily risk range: for each day the maximum
// low risk plus the maximum high risk, averaged across days. Days with
// no observed value are skipped; no usable day at all is NaN.
func ADRR(tr *trace.Trace) float64 {
	var daily []float64
	for _, day := range tr.Days() {
		vals := day.Values()
		if len(vals) == 0 {
			continue
		}
		maxLow, maxHigh := 0.0, 0.0
		for _, v := range vals {
			if rl := lowRisk(v); rl > maxLow {
				maxLow = rl
			}
			if rh := highRisk(v); rh > maxHigh {
				maxHigh = rh
			}
		}
		daily = append(daily, maxLow+maxHigh)
	}
	if len(daily) == 0 {
		return math.NaN()
	}
	return stat.Mean(daily, nil)
}

// GRI returns the glycemia risk index, a 0-100 composite weighting time
// below and above range by severity: 3.0·VLow + 2.4·Low + 1.6·VHigh +
// 0.8·High, with the components as percentages of observed samples.
func GRI(tr *trace.Trace) float64 {
	hypo, hyper := GRIComponents(tr)
	return math.Min(100, hypo+hyper)
}

// GRIComponents returns the hypoglycemia and hyperglycemia components of
// the glycemia risk index, unclamped. Both are NaN when no samples are
// observed.
func GRIComponents(tr *trace.Trace) (hypo, hyper float64) {
	vals := tr.Values()
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	var vlow, low, high, vhigh int
	for _, v := range vals {
		switch {
		case v < 54:
			vlow++
		case v < 70:
			low++
		case v > 250:
			vhigh++
		case v > 180:
			high++
		}
	}
	n := float64(len(vals))
	hypo = 3.0*100*float64(vlow)/n + 2.4*100*float64(low)/n
	hyper = 1.6*100*float64(vhigh)/n + 0.8*100*float64(high)/n
	return hypo, hyper
}

// Zone is one of the six ordered risk grid zones, from tight control to
// extreme glycemic variability.
type Zone string

const (
	ZoneTightA Zone = "tight_a" // min ≥ 90, max ≤ 140
	ZoneA      Zone = "a"       // accurate control
	ZoneB      Zone = "b"       // benign deviation
	ZoneC      Zone = "c"       // over-correction of one extreme
	ZoneD      Zone = "d"       // failure to deal with one extreme
	ZoneE      Zone = "e"       // erroneous control
)

// Zones lists the grid zones in severity order.
var Zones = []Zone{ZoneTightA, ZoneA, ZoneB, ZoneC, ZoneD, ZoneE}

// Grid boundary table, fixed by the CVGA literature rather than derived
// from data. The min axis bands at 90 and 70 mg/dL (floor 50), the max
// axis at 180 and 300 (ceiling 400); the 9-cell matrix folds into the
// ordered zones by worst coordinate.
var zoneMatrix = [3][3]Zone{
	{ZoneA, ZoneB, ZoneC}, // min ≥ 90
	{ZoneB, ZoneB, ZoneD}, // 70 ≤ min < 90
	{ZoneC, ZoneD, ZoneE}, // min < 70
}

// ClassifyWindow maps a window's (min, max) glucose summary to its zone.
func ClassifyWindow(min, max float64) Zone {
	if min >= 90 && max <= 140 {
		return ZoneTightA
	}

	minBand := 2
	switch {
	case min >= 90:
		minBand = 0
	case min >= 70:
		minBand = 1
	}

	maxBand := 2
	switch {
	case max <= 180:
		maxBand = 0
	case max <= 300:
		maxBand = 1
	}

	return zoneMatrix[minBand][maxBand]
}

// GridResult is the zone occupancy of a trace's analysis windows.
type GridResult struct {
	// Occupancy is the fraction of usable windows per zone, summing to 1
	// when Windows > 0. Every zone has an entry, possibly 0.
	Occupancy map[Zone]float64 `json:"occupancy"`

	// Windows counts the usable (non-empty) analysis windows.
	Windows int `json:"windows"`
}

// Grid splits the trace into per-day windows, classifies each day's
// (min, max) pair, and aggregates zone occupancy. Days with no observed
// value are excluded from the denominator.
func Grid(tr *trace.Trace) GridResult {
	res := GridResult{Occupancy: make(map[Zone]float64, len(Zones))}
	for _, z := range Zones {
		res.Occupancy[z] = 0
	}

	counts := make(map[Zone]int)
	for _, day := range tr.Days() {
		vals := day.Values()
		if len(vals) == 0 {
			continue
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
		counts[ClassifyWindow(min, max)]++
		res.Windows++
	}

	if res.Windows > 0 {
		for z, c := range counts {
			res.Occupancy[z] = float64(c) / float64(res.Windows)
		}
	}
	return res
}

// CVGA returns the control variability grid summary: the percentage of
// usable windows falling in the benign zones (tight-A, A, B). NaN when
// the trace has no usable window.
func CVGA(tr *trace.Trace) float64 {
	grid := Grid(tr)
	if grid.Windows == 0 {
		return math.NaN()
	}
	benign := grid.Occupancy[ZoneTightA] + grid.Occupancy[ZoneA] + grid.Occupancy[ZoneB]
	return 100 * benign
}

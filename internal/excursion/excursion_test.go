package excursion

import (
	"math"
	"testing"
	"time"

	"github.com/glucolab/agata/internal/trace"
)

var t0 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func grid(values ...float64) *trace.Trace {
	return trace.FromValues(t0, 5*time.Minute, values)
}

func mustAnalyze(t *testing.T, tr *trace.Trace, p Params) Result {
	t.Helper()
	res, err := Analyze(tr, p)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestAnalyzeMonotoneTraceIsUndefined(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{name: "strictly increasing", values: []float64{80, 100, 120, 140, 160, 180}},
		{name: "strictly decreasing", values: []float64{180, 160, 140, 120, 100, 80}},
		{name: "constant", values: []float64{120, 120, 120, 120}},
		{name: "empty", values: nil},
		{name: "single sample", values: []float64{120}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustAnalyze(t, grid(tt.values...), Params{Threshold: 10})
			if !math.IsNaN(res.Mage) || !math.IsNaN(res.MagePlus) || !math.IsNaN(res.MageMinus) {
				t.Errorf("monotone trace must yield undefined amplitudes, got %+v", res)
			}
			if res.TurningPoints != 0 {
				t.Errorf("turning points = %d, want 0", res.TurningPoints)
			}
		})
	}
}

func TestAnalyzeTriangleWave(t *testing.T) {
	res := mustAnalyze(t, grid(100, 160, 100, 160, 100), Params{Threshold: 20})

	if res.TurningPoints != 3 {
		t.Fatalf("turning points = %d, want 3", res.TurningPoints)
	}
	if res.MagePlus != 60 {
		t.Errorf("mage+ = %.1f, want 60", res.MagePlus)
	}
	if res.MageMinus != 60 {
		t.Errorf("mage- = %.1f, want 60", res.MageMinus)
	}
	if res.Mage != 60 {
		t.Errorf("mage = %.1f, want 60", res.Mage)
	}
	// Two qualifying excursions in 20 minutes of observation.
	if math.Abs(res.Frequency-144) > 1e-9 {
		t.Errorf("frequency = %.1f excursions/day, want 144", res.Frequency)
	}
}

func TestNoiseOscillationsAreMerged(t *testing.T) {
	// The 110/105 wiggle is below the 20 mg/dL threshold and must not
	// count as an excursion; the climb to 160 must.
	res := mustAnalyze(t, grid(100, 110, 105, 160, 100), Params{Threshold: 20})

	if res.TurningPoints != 2 {
		t.Fatalf("turning points after merge = %d, want 2", res.TurningPoints)
	}
	if res.MagePlus != 55 {
		t.Errorf("mage+ = %.1f, want 55 (105 valley to 160 peak)", res.MagePlus)
	}
	if !math.IsNaN(res.MageMinus) {
		t.Errorf("mage- = %.1f, want undefined (no qualifying downward excursion)", res.MageMinus)
	}
}

func TestGapDoesNotManufactureTurningPoint(t *testing.T) {
	// Rising run, gap, falling run: the reversal happens inside the gap
	// and must not be reported as a peak.
	res := mustAnalyze(t, grid(100, 120, 140, math.NaN(), 100, 80, 60), Params{Threshold: 10})

	if res.TurningPoints != 0 {
		t.Errorf("turning points = %d, want 0 across a gap", res.TurningPoints)
	}
	if !math.IsNaN(res.Mage) {
		t.Errorf("mage = %.1f, want undefined", res.Mage)
	}
}

func TestDefaultThresholdIsTraceStd(t *testing.T) {
	// With the default (one std) threshold the small oscillation merges
	// away while the large swings survive.
	res := mustAnalyze(t, grid(100, 200, 100, 105, 100, 200, 100), Params{})

	if math.IsNaN(res.Mage) {
		t.Fatal("expected defined mage for large swings under default threshold")
	}
	if res.Mage < 95 || res.Mage > 100 {
		t.Errorf("mage = %.1f, want ~100 for the dominant swings", res.Mage)
	}
}

func TestNegativeThresholdRejected(t *testing.T) {
	if err := (Params{Threshold: -5}).Validate(); err == nil {
		t.Error("expected validation error for negative threshold")
	}
	if _, err := Analyze(grid(100, 160, 100), Params{Threshold: -5}); err == nil {
		t.Error("expected Analyze to reject a negative threshold")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	tps := findTurningPoints(grid(100, 110, 105, 160, 100, 130, 125, 180, 90))
	threshold := 20.0

	once := mergeTurningPoints(append([]turningPoint(nil), tps...), threshold)
	twice := mergeTurningPoints(append([]turningPoint(nil), once...), threshold)

	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d points then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("turning point %d changed on second merge: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestAllNoiseYieldsUndefined(t *testing.T) {
	res := mustAnalyze(t, grid(100, 104, 100, 103, 100, 105, 100), Params{Threshold: 20})
	if res.TurningPoints >= 2 {
		t.Errorf("turning points = %d, want fewer than 2 after merging pure noise", res.TurningPoints)
	}
	if !math.IsNaN(res.Mage) {
		t.Errorf("mage = %.1f, want undefined", res.Mage)
	}
}

package timeinrange

import (
	"math"
	"testing"
	"time"

	"github.com/glucolab/agata/internal/target"
	"github.com/glucolab/agata/internal/trace"
)

var t0 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCompute(t *testing.T) {
	prof, err := target.Resolve("diabetes")
	if err != nil {
		t.Fatal(err)
	}

	// Ten observed samples, one per band of interest, plus a missing one
	// that must not enter the denominator.
	tr := trace.FromValues(t0, 5*time.Minute, []float64{
		40,  // l2 hypo
		60,  // l1 hypo
		100, // tight target
		120, // tight target
		160, // target, not tight
		175, // target, not tight
		200, // l1 hyper
		220, // l1 hyper
		300, // l2 hyper
		320, // l2 hyper
		math.NaN(),
	})

	got := Compute(tr, prof)

	check := func(name string, got, want float64) {
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %.2f, want %.2f", name, got, want)
		}
	}
	check("target", got.Target, 40)
	check("tight target", got.TightTarget, 20)
	check("hypo", got.Hypo, 20)
	check("l1 hypo", got.L1Hypo, 10)
	check("l2 hypo", got.L2Hypo, 10)
	check("hyper", got.Hyper, 40)
	check("l1 hyper", got.L1Hyper, 20)
	check("l2 hyper", got.L2Hyper, 20)
}

func TestComputeUndefinedWithoutData(t *testing.T) {
	prof, _ := target.Resolve("diabetes")

	for name, tr := range map[string]*trace.Trace{
		"empty":       trace.Empty(),
		"all missing": trace.FromValues(t0, 5*time.Minute, []float64{math.NaN(), math.NaN()}),
	} {
		got := Compute(tr, prof)
		if !math.IsNaN(got.Target) || !math.IsNaN(got.Hypo) || !math.IsNaN(got.L2Hyper) {
			t.Errorf("%s: expected NaN partition, got %+v", name, got)
		}
	}
}

package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/glucolab/agata/internal/trace"
)

var t0 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewRejectsUnknownProfile(t *testing.T) {
	if _, err := New("bogus"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestAnalyze(t *testing.T) {
	a, err := New("diabetes")
	if err != nil {
		t.Fatal(err)
	}

	// Two days of in-range readings with a sustained dip to 60.
	values := make([]float64, 576)
	for i := range values {
		values[i] = 110
	}
	for i := 100; i < 110; i++ {
		values[i] = 60
	}
	tr := trace.FromValues(t0, 5*time.Minute, values)

	r, err := a.Analyze(tr)
	if err != nil {
		t.Fatal(err)
	}

	if r.ID == "" {
		t.Error("report has no run ID")
	}
	if r.GlycemicTarget != "diabetes" {
		t.Errorf("GlycemicTarget = %q, want diabetes", r.GlycemicTarget)
	}
	if got := float64(r.Variability.MeanGlucose); math.Abs(got-109.13) > 0.01 {
		t.Errorf("MeanGlucose = %f, want 109.13", got)
	}
	if got := float64(r.DataQuality.DaysOfObservation); math.Abs(got-2) > 1e-9 {
		t.Errorf("DaysOfObservation = %f, want 2", got)
	}
	if r.Events.Hypoglycemic.All.Count != 1 {
		t.Errorf("hypo event count = %d, want 1", r.Events.Hypoglycemic.All.Count)
	}
	if r.Events.Hypoglycemic.L1.Count != 1 || r.Events.Hypoglycemic.L2.Count != 0 {
		t.Errorf("hypo level split = %d/%d, want 1/0",
			r.Events.Hypoglycemic.L1.Count, r.Events.Hypoglycemic.L2.Count)
	}
	if r.Events.Hyperglycemic.All.Count != 0 {
		t.Errorf("hyper event count = %d, want 0", r.Events.Hyperglycemic.All.Count)
	}
	hypoShare := float64(r.TimeInRanges.TimeInHypoglycemia)
	if math.Abs(hypoShare-100.0*10.0/576.0) > 1e-9 {
		t.Errorf("TimeInHypoglycemia = %f, want %f", hypoShare, 100.0*10.0/576.0)
	}
}

func TestReportJSONRendersUndefinedAsNull(t *testing.T) {
	a, err := New("diabetes")
	if err != nil {
		t.Fatal(err)
	}
	r, err := a.Analyze(trace.Empty())
	if err != nil {
		t.Fatal(err)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "NaN") {
		t.Errorf("report JSON leaks NaN: %s", s)
	}
	if !strings.Contains(s, `"mean_glucose":null`) {
		t.Errorf("undefined mean_glucose not rendered as null: %s", s)
	}

	var back Report
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Variability.MeanGlucose.Defined() {
		t.Error("null did not round-trip to an undefined metric")
	}
}

func TestComparisonReportMarshalsWithZeroReference(t *testing.T) {
	ref := trace.FromValues(t0, 5*time.Minute, []float64{0, 100})
	cand := trace.FromValues(t0, 5*time.Minute, []float64{10, 100})

	r := CompareTraces(ref, cand)

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("comparison report did not marshal: %v", err)
	}
	if strings.Contains(string(b), "Inf") {
		t.Errorf("report JSON leaks an infinity: %s", b)
	}
}

func TestMetricMarshalsNonFiniteAsNull(t *testing.T) {
	for name, m := range map[string]Metric{
		"nan":     Metric(math.NaN()),
		"pos inf": Metric(math.Inf(1)),
		"neg inf": Metric(math.Inf(-1)),
	} {
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(b) != "null" {
			t.Errorf("%s marshaled as %s, want null", name, b)
		}
		if m.Defined() {
			t.Errorf("%s reports Defined", name)
		}
	}
}

func TestCompareTraces(t *testing.T) {
	a := trace.FromValues(t0, 5*time.Minute, []float64{100, 110, 120})
	r := CompareTraces(a, a)

	if r.ValidPairs != 3 {
		t.Errorf("ValidPairs = %d, want 3", r.ValidPairs)
	}
	if float64(r.Rmse) != 0 || float64(r.Mad) != 0 {
		t.Errorf("self comparison should be exact, got %+v", r)
	}
	if r.ID == "" {
		t.Error("comparison report has no run ID")
	}
}

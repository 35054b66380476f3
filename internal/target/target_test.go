package target

import (
	"errors"
	"math"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantErr  bool
		wantLow  float64
		wantHigh float64
	}{
		{name: "diabetes", target: "diabetes", wantLow: 70, wantHigh: 180},
		{name: "pregnancy", target: "pregnancy", wantLow: 63, wantHigh: 140},
		{name: "type1 aliases diabetes", target: "type1", wantLow: 70, wantHigh: 180},
		{name: "unknown", target: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.target)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownTarget) {
					t.Fatalf("expected ErrUnknownTarget, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Low != tt.wantLow || p.High != tt.wantHigh {
				t.Errorf("Resolve(%q) = low %.0f high %.0f, want %.0f/%.0f",
					tt.target, p.Low, p.High, tt.wantLow, tt.wantHigh)
			}
		})
	}
}

func TestProfileValidate(t *testing.T) {
	good := Profile{Name: "ok", VeryLow: 54, Low: 70, TightLow: 70, TightHigh: 140, High: 180, VeryHigh: 250}
	if err := good.Validate(); err != nil {
		t.Errorf("valid profile rejected: %v", err)
	}

	bad := good
	bad.VeryHigh = 100 // below High
	if err := bad.Validate(); err == nil {
		t.Error("unordered cutoffs must fail validation")
	}
}

func TestClassifyBoundaries(t *testing.T) {
	p, err := Resolve("diabetes")
	if err != nil {
		t.Fatal(err)
	}

	// Boundary values go to the lower-risk side of each cutoff.
	tests := []struct {
		value float64
		want  RangeLabel
	}{
		{40, Level2Hypoglycemia},
		{53.9, Level2Hypoglycemia},
		{54, Level1Hypoglycemia}, // cutoff itself is the milder level
		{69.9, Level1Hypoglycemia},
		{70, TightTargetRange}, // cutoff itself is in range
		{140, TightTargetRange},
		{140.1, TargetRange},
		{180, TargetRange}, // cutoff itself is in range
		{180.1, Level1Hyperglycemia},
		{250, Level1Hyperglycemia}, // cutoff itself is the milder level
		{250.1, Level2Hyperglycemia},
		{400, Level2Hyperglycemia},
	}

	for _, tt := range tests {
		got, err := Classify(tt.value, p)
		if err != nil {
			t.Fatalf("Classify(%.1f) returned error: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Classify(%.1f) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestClassifyMissingValue(t *testing.T) {
	p, _ := Resolve("diabetes")
	if _, err := Classify(math.NaN(), p); !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected ErrMissingValue for NaN input, got %v", err)
	}
}

func TestRangePredicates(t *testing.T) {
	p, _ := Resolve("diabetes")

	if !p.InTarget(70) || !p.InTarget(180) {
		t.Error("target band must include both edges")
	}
	if p.InTarget(69.9) || p.InTarget(180.1) {
		t.Error("values outside the band must not be in target")
	}
	if !p.InTightTarget(140) || p.InTightTarget(140.1) {
		t.Error("tight band upper edge is inclusive")
	}
	if !p.Hypo(69.9) || p.Hypo(70) {
		t.Error("hypo is strictly below the low cutoff")
	}
	if !p.Hyper(180.1) || p.Hyper(180) {
		t.Error("hyper is strictly above the high cutoff")
	}
}

package quality

import (
	"math"
	"testing"
	"time"

	"github.com/glucolab/agata/internal/trace"
)

func TestAssess(t *testing.T) {
	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	// A full day of 5-minute slots with every fourth reading missing.
	values := make([]float64, 288)
	for i := range values {
		if i%4 == 3 {
			values[i] = math.NaN()
		} else {
			values[i] = 100
		}
	}
	got := Assess(trace.FromValues(t0, 5*time.Minute, values))

	if math.Abs(got.DaysOfObservation-1) > 1e-9 {
		t.Errorf("DaysOfObservation = %f, want 1", got.DaysOfObservation)
	}
	if math.Abs(got.MissingPercentage-25) > 1e-9 {
		t.Errorf("MissingPercentage = %f, want 25", got.MissingPercentage)
	}
}

func TestAssessEmpty(t *testing.T) {
	got := Assess(trace.Empty())
	if !math.IsNaN(got.DaysOfObservation) || !math.IsNaN(got.MissingPercentage) {
		t.Errorf("empty trace should be all NaN, got %+v", got)
	}
}

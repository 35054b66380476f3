// Package quality reports how much of a trace is actually usable.
package quality

import (
	"math"

	"github.com/glucolab/agata/internal/trace"
)

// Result summarizes data quality for one trace.
type Result struct {
	// DaysOfObservation is the wall-clock span of the trace in days,
	// counting the final sample's period.
	DaysOfObservation float64 `json:"number_days_of_observation"`
	// MissingPercentage is the share of sample slots carrying no
	// reading, in percent.
	MissingPercentage float64 `json:"missing_glucose_percentage"`
}

// Assess returns the data-quality summary for tr. Both figures are NaN
// for an empty trace.
func Assess(tr *trace.Trace) Result {
	if tr.Len() == 0 {
		return Result{
			DaysOfObservation: math.NaN(),
			MissingPercentage: math.NaN(),
		}
	}

	period := tr.SamplePeriod()
	span := tr.End().Sub(tr.Start()) + period

	missing := 0
	for i := 0; i < tr.Len(); i++ {
		if tr.At(i).Missing {
			missing++
		}
	}

	return Result{
		DaysOfObservation: span.Hours() / 24.0,
		MissingPercentage: 100.0 * float64(missing) / float64(tr.Len()),
	}
}

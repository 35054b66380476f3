// Package events detects sustained glycemic excursion events (hypoglycemic,
// hyperglycemic, extended hypoglycemic) in a glucose trace.
//
// Detection is a single left-to-right scan driven by an explicit state
// machine per event kind:
//
//	OUTSIDE -> CANDIDATE: first out-of-band sample
//	CANDIDATE -> ACTIVE:  out-of-band condition sustained for MinDuration
//	ACTIVE -> BRIDGING:   value back in band, recovery clock starts
//	BRIDGING -> ACTIVE:   out-of-band again within GapTolerance (gap absorbed)
//	BRIDGING/ACTIVE -> closed: recovery exceeds GapTolerance, or trace ends
//
// Missing samples never open, close, or extend an event on their own; they
// only let the recovery clock run for gap-tolerance accounting.
package events

import (
	"fmt"
	"time"

	"github.com/glucolab/agata/internal/target"
	"github.com/glucolab/agata/internal/trace"
)

// Kind identifies the event family.
type Kind string

const (
	Hypoglycemic         Kind = "hypo"
	Hyperglycemic        Kind = "hyper"
	ExtendedHypoglycemic Kind = "extended_hypo"
)

// Event is one contiguous (gap-bridged) excursion beyond a threshold.
// Duration counts whole sample periods, end-inclusive, so a three-sample
// run on a 5-minute grid lasts 15 minutes. Bridged in-band gaps are part
// of the event.
type Event struct {
	Kind     Kind          `json:"kind"`
	Level    int           `json:"level,omitempty"` // 1 or 2; 0 for extended events
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Extremum float64       `json:"nadir_or_peak"`
	Duration time.Duration `json:"duration"`
}

// Params configures one detector kind. The zero value is invalid; start
// from one of the Default*Params constructors.
type Params struct {
	// MinDuration is how long the out-of-band condition must persist
	// before an event opens (retroactively from the first such sample).
	MinDuration time.Duration

	// GapTolerance is the longest in-band (or unobserved) stretch an open
	// event absorbs before it is closed at the last out-of-band sample.
	GapTolerance time.Duration
}

// Validate rejects non-positive durations. Invalid parameters are a
// configuration error and fail before any scanning happens.
func (p Params) Validate() error {
	if p.MinDuration <= 0 {
		return fmt.Errorf("events: MinDuration must be positive, got %v", p.MinDuration)
	}
	if p.GapTolerance <= 0 {
		return fmt.Errorf("events: GapTolerance must be positive, got %v", p.GapTolerance)
	}
	return nil
}

// DefaultHypoParams returns the consensus hypoglycemic event parameters:
// 15 minutes below threshold to open, 15 minutes back in band to close.
func DefaultHypoParams() Params {
	return Params{MinDuration: 15 * time.Minute, GapTolerance: 15 * time.Minute}
}

// DefaultHyperParams returns the hyperglycemic event parameters. Hyper
// events tolerate a longer dip back into range before closing.
func DefaultHyperParams() Params {
	return Params{MinDuration: 15 * time.Minute, GapTolerance: 30 * time.Minute}
}

// DefaultExtendedHypoParams returns the extended (prolonged) hypoglycemia
// parameters: 120 sustained minutes, no level subdivision.
func DefaultExtendedHypoParams() Params {
	return Params{MinDuration: 120 * time.Minute, GapTolerance: 15 * time.Minute}
}

// Summary aggregates the events of one kind and level over a trace.
type Summary struct {
	Events       []Event       `json:"events"`
	Count        int           `json:"count"`
	MeanDuration time.Duration `json:"mean_duration"`
	PerWeek      float64       `json:"events_per_week"`
}

// ByLevel holds a kind's events subdivided by severity level. All is the
// detection at the level 1 threshold; L2 is the independent detection at
// the level 2 threshold; L1 is the subset of All that never crosses the
// level 2 threshold. Each list is ordered and non-overlapping.
type ByLevel struct {
	All Summary `json:"all"`
	L1  Summary `json:"level_1"`
	L2  Summary `json:"level_2"`
}

// DetectHypoglycemic finds sustained runs below the profile's low
// thresholds, split by level.
func DetectHypoglycemic(tr *trace.Trace, prof target.Profile, p Params) (ByLevel, error) {
	if err := p.Validate(); err != nil {
		return ByLevel{}, err
	}
	all := detectBand(tr, func(v float64) bool { return v < prof.Low }, Hypoglycemic, p)
	l2 := detectBand(tr, func(v float64) bool { return v < prof.VeryLow }, Hypoglycemic, p)
	return splitLevels(tr, all, l2, func(e Event) bool { return e.Extremum < prof.VeryLow }), nil
}

// DetectHyperglycemic finds sustained runs above the profile's high
// thresholds, split by level.
func DetectHyperglycemic(tr *trace.Trace, prof target.Profile, p Params) (ByLevel, error) {
	if err := p.Validate(); err != nil {
		return ByLevel{}, err
	}
	all := detectBand(tr, func(v float64) bool { return v > prof.High }, Hyperglycemic, p)
	l2 := detectBand(tr, func(v float64) bool { return v > prof.VeryHigh }, Hyperglycemic, p)
	return splitLevels(tr, all, l2, func(e Event) bool { return e.Extremum > prof.VeryHigh }), nil
}

// DetectExtendedHypoglycemic finds prolonged runs below the profile's low
// threshold. Same machine as the level 1 hypo detector, longer MinDuration,
// no level subdivision.
func DetectExtendedHypoglycemic(tr *trace.Trace, prof target.Profile, p Params) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}
	evs := detectBand(tr, func(v float64) bool { return v < prof.Low }, ExtendedHypoglycemic, p)
	return summarize(tr, evs), nil
}

type scanState int

const (
	stOutside scanState = iota
	stCandidate
	stActive
	stBridging
)

// detectBand runs the state machine over tr for one out-of-band predicate.
// Events come out ordered by start time and non-overlapping.
func detectBand(tr *trace.Trace, outOfBand func(float64) bool, kind Kind, p Params) []Event {
	period := tr.SamplePeriod()
	state := stOutside

	var events []Event
	var candidateStart time.Time // first out-of-band sample of the run
	var lastOut time.Time        // most recent out-of-band sample
	var extremum float64

	worse := func(a, b float64) float64 { // further out of band wins
		if kind == Hyperglycemic && a > b {
			return a
		}
		if kind != Hyperglycemic && a < b {
			return a
		}
		return b
	}

	closeEvent := func() {
		level := 0
		if kind != ExtendedHypoglycemic {
			level = 1
		}
		events = append(events, Event{
			Kind:     kind,
			Level:    level,
			Start:    candidateStart,
			End:      lastOut,
			Extremum: extremum,
			Duration: lastOut.Sub(candidateStart) + period,
		})
	}

	for _, s := range tr.Samples() {
		// Recovery clock runs on wall time, so unobserved stretches count
		// toward the gap tolerance without closing anything themselves.
		if state != stOutside && s.Time.Sub(lastOut) > p.GapTolerance {
			if state == stActive || state == stBridging {
				closeEvent()
			}
			state = stOutside
		}

		if s.Missing {
			continue
		}
		out := outOfBand(s.Value)

		switch state {
		case stOutside:
			if out {
				state = stCandidate
				candidateStart = s.Time
				lastOut = s.Time
				extremum = s.Value
				if s.Time.Sub(candidateStart)+period >= p.MinDuration {
					state = stActive
				}
			}

		case stCandidate:
			if out {
				lastOut = s.Time
				extremum = worse(s.Value, extremum)
				if s.Time.Sub(candidateStart)+period >= p.MinDuration {
					state = stActive
				}
			} else {
				// Back in band before the duration requirement: no event.
				state = stOutside
			}

		case stActive:
			if out {
				lastOut = s.Time
				extremum = worse(s.Value, extremum)
			} else {
				state = stBridging
			}

		case stBridging:
			if out {
				// Recovery stayed within tolerance (checked above), so the
				// gap is absorbed and the event continues.
				state = stActive
				lastOut = s.Time
				extremum = worse(s.Value, extremum)
			}
		}
	}

	// An event open at trace end closes at its last out-of-band sample,
	// never past the trace.
	if state == stActive || state == stBridging {
		closeEvent()
	}
	return events
}

// splitLevels assembles the by-level view from the two detections.
func splitLevels(tr *trace.Trace, all, l2 []Event, reachesL2 func(Event) bool) ByLevel {
	var l1 []Event
	for _, e := range all {
		if !reachesL2(e) {
			l1 = append(l1, e)
		}
	}
	for i := range l2 {
		l2[i].Level = 2
	}
	return ByLevel{
		All: summarize(tr, all),
		L1:  summarize(tr, l1),
		L2:  summarize(tr, l2),
	}
}

// summarize computes the per-kind aggregate figures the report carries.
func summarize(tr *trace.Trace, evs []Event) Summary {
	if evs == nil {
		// A kind with no events still reports an empty list, not null.
		evs = []Event{}
	}
	s := Summary{Events: evs, Count: len(evs)}
	if len(evs) == 0 {
		return s
	}

	var total time.Duration
	for _, e := range evs {
		total += e.Duration
	}
	s.MeanDuration = total / time.Duration(len(evs))

	if d := tr.Duration(); d > 0 {
		weeks := d.Hours() / (24 * 7)
		s.PerWeek = float64(len(evs)) / weeks
	}
	return s
}

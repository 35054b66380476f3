// Package trace provides the in-memory representation of a CGM glucose
// time series with explicit missing-value semantics.
package trace

import (
	"errors"
	"math"
	"sort"
	"time"
)

// DefaultSamplePeriod is the nominal CGM sampling interval assumed when a
// trace is too short to infer one.
const DefaultSamplePeriod = 5 * time.Minute

// ErrUnordered is returned by New when timestamps are not strictly increasing.
var ErrUnordered = errors.New("trace: timestamps must be unique and strictly increasing")

// Sample is a single glucose observation. Value is in mg/dL and is only
// meaningful when Missing is false. A missing sample still occupies its
// timestamp slot; it is an observation gap, not an absent row.
type Sample struct {
	Time    time.Time
	Value   float64
	Missing bool
}

// Present reports whether the sample carries a glucose value.
func (s Sample) Present() bool {
	return !s.Missing
}

// Trace is an ordered glucose time series. Timestamps are unique and
// strictly ascending. A Trace never mutates after construction; analysis
// components share it freely.
type Trace struct {
	samples []Sample
}

// New builds a Trace from samples, rejecting any non-increasing timestamp.
func New(samples []Sample) (*Trace, error) {
	for i := 1; i < len(samples); i++ {
		if !samples[i].Time.After(samples[i-1].Time) {
			return nil, ErrUnordered
		}
	}
	s := make([]Sample, len(samples))
	copy(s, samples)
	return &Trace{samples: s}, nil
}

// NewFiltered builds a Trace from samples in any order, sorting by
// timestamp and keeping the first sample seen for each duplicate timestamp.
func NewFiltered(samples []Sample) *Trace {
	s := make([]Sample, len(samples))
	copy(s, samples)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })

	out := s[:0]
	for i, sm := range s {
		if i > 0 && !sm.Time.After(out[len(out)-1].Time) {
			continue
		}
		out = append(out, sm)
	}
	return &Trace{samples: out}
}

// FromValues builds an evenly spaced Trace starting at start. NaN values
// become missing samples; this is the one place where the NaN-as-gap
// convention of raw CGM exports is translated into the explicit
// missing-sample representation.
func FromValues(start time.Time, period time.Duration, values []float64) *Trace {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Time: start.Add(time.Duration(i) * period)}
		if math.IsNaN(v) {
			samples[i].Missing = true
		} else {
			samples[i].Value = v
		}
	}
	return &Trace{samples: samples}
}

// Empty returns a Trace with no samples.
func Empty() *Trace {
	return &Trace{}
}

// Len returns the number of samples, missing ones included.
func (t *Trace) Len() int {
	return len(t.samples)
}

// At returns the i-th sample in timestamp order.
func (t *Trace) At(i int) Sample {
	return t.samples[i]
}

// Samples returns the underlying sample slice in timestamp order. The
// slice is shared; callers must treat it as read-only.
func (t *Trace) Samples() []Sample {
	return t.samples
}

// Values returns the non-missing glucose values in timestamp order.
func (t *Trace) Values() []float64 {
	vals := make([]float64, 0, len(t.samples))
	for _, s := range t.samples {
		if s.Present() {
			vals = append(vals, s.Value)
		}
	}
	return vals
}

// IndexOf locates the sample with exactly the given timestamp.
func (t *Trace) IndexOf(ts time.Time) (int, bool) {
	i := sort.Search(len(t.samples), func(i int) bool {
		return !t.samples[i].Time.Before(ts)
	})
	if i < len(t.samples) && t.samples[i].Time.Equal(ts) {
		return i, true
	}
	return 0, false
}

// ValueAt returns the glucose value observed exactly at ts. The second
// return is false when no sample exists at ts or the sample is missing.
// There is no interpolation; gap handling belongs to the analysis layer.
func (t *Trace) ValueAt(ts time.Time) (float64, bool) {
	i, ok := t.IndexOf(ts)
	if !ok || t.samples[i].Missing {
		return 0, false
	}
	return t.samples[i].Value, true
}

// Start returns the first timestamp. Only valid when Len() > 0.
func (t *Trace) Start() time.Time {
	return t.samples[0].Time
}

// End returns the last timestamp. Only valid when Len() > 0.
func (t *Trace) End() time.Time {
	return t.samples[len(t.samples)-1].Time
}

// Duration returns End minus Start, or zero for traces shorter than two samples.
func (t *Trace) Duration() time.Duration {
	if len(t.samples) < 2 {
		return 0
	}
	return t.End().Sub(t.Start())
}

// AllMissing reports whether the trace holds no observed value at all.
// True for the empty trace.
func (t *Trace) AllMissing() bool {
	for _, s := range t.samples {
		if s.Present() {
			return false
		}
	}
	return true
}

// SamplePeriod infers the sampling interval as the median gap between
// consecutive timestamps, falling back to DefaultSamplePeriod when fewer
// than two samples exist. The median keeps occasional sensor dropouts
// from skewing the estimate.
func (t *Trace) SamplePeriod() time.Duration {
	if len(t.samples) < 2 {
		return DefaultSamplePeriod
	}
	gaps := make([]time.Duration, 0, len(t.samples)-1)
	for i := 1; i < len(t.samples); i++ {
		gaps = append(gaps, t.samples[i].Time.Sub(t.samples[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

// Days splits the trace into per-calendar-day sub-traces in timestamp
// order, using each sample's own time zone. Days with only missing
// samples are still returned; window-level policies (like excluding them
// from risk grids) belong to the caller.
func (t *Trace) Days() []*Trace {
	var days []*Trace
	var cur []Sample
	var curY int
	var curD int

	flush := func() {
		if len(cur) > 0 {
			days = append(days, &Trace{samples: cur})
			cur = nil
		}
	}

	for _, s := range t.samples {
		y, d := s.Time.Year(), s.Time.YearDay()
		if len(cur) > 0 && (y != curY || d != curD) {
			flush()
		}
		if len(cur) == 0 {
			curY, curD = y, d
		}
		cur = append(cur, s)
	}
	flush()
	return days
}

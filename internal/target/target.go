// Package target resolves named glycemic targets into threshold profiles
// and classifies glucose values against them.
package target

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownTarget is returned by Resolve for an unrecognized target name.
	ErrUnknownTarget = errors.New("target: unknown glycemic target")

	// ErrMissingValue is returned when a missing glucose value reaches the
	// classifier. Callers must filter missing samples before classifying.
	ErrMissingValue = errors.New("target: cannot classify a missing value")
)

// RangeLabel identifies the clinical range a glucose value falls in.
type RangeLabel string

const (
	Level2Hypoglycemia  RangeLabel = "level_2_hypoglycemia"
	Level1Hypoglycemia  RangeLabel = "level_1_hypoglycemia"
	TargetRange         RangeLabel = "target"
	TightTargetRange    RangeLabel = "tight_target"
	Level1Hyperglycemia RangeLabel = "level_1_hyperglycemia"
	Level2Hyperglycemia RangeLabel = "level_2_hyperglycemia"
)

// Profile holds the ordered concentration cutoffs (mg/dL) for one glycemic
// target. Immutable once resolved; analyses under different targets each
// carry their own Profile.
type Profile struct {
	Name string `json:"name"`

	VeryLow   float64 `json:"very_low"`   // below this: level 2 hypoglycemia
	Low       float64 `json:"low"`        // below this: hypoglycemia (level 1 between VeryLow and Low)
	TightLow  float64 `json:"tight_low"`  // tight target band lower edge
	TightHigh float64 `json:"tight_high"` // tight target band upper edge
	High      float64 `json:"high"`       // above this: hyperglycemia (level 1 up to VeryHigh)
	VeryHigh  float64 `json:"very_high"`  // above this: level 2 hyperglycemia
}

// Validate checks the cutoff ordering invariant. A profile that fails
// validation is a configuration error and must never be used.
func (p Profile) Validate() error {
	ok := p.VeryLow < p.Low &&
		p.Low <= p.TightLow &&
		p.TightLow < p.TightHigh &&
		p.TightHigh <= p.High &&
		p.High < p.VeryHigh
	if !ok {
		return fmt.Errorf("target: profile %q has unordered cutoffs: %.0f/%.0f/%.0f/%.0f/%.0f/%.0f",
			p.Name, p.VeryLow, p.Low, p.TightLow, p.TightHigh, p.High, p.VeryHigh)
	}
	return nil
}

// Built-in profiles. Cutoffs follow the international consensus on CGM
// targets: standard diabetes ranges and the tighter pregnancy ranges.
var profiles = map[string]Profile{
	"diabetes": {
		Name:      "diabetes",
		VeryLow:   54,
		Low:       70,
		TightLow:  70,
		TightHigh: 140,
		High:      180,
		VeryHigh:  250,
	},
	"pregnancy": {
		Name:      "pregnancy",
		VeryLow:   54,
		Low:       63,
		TightLow:  63,
		TightHigh: 120,
		High:      140,
		VeryHigh:  250,
	},
}

// Aliases accepted by Resolve in addition to the canonical names.
var aliases = map[string]string{
	"type1": "diabetes",
	"type2": "diabetes",
}

// Resolve maps a glycemic target name to its immutable threshold profile.
func Resolve(name string) (Profile, error) {
	canonical := name
	if a, ok := aliases[name]; ok {
		canonical = a
	}
	p, ok := profiles[canonical]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Profiles returns the built-in profiles sorted by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Classify maps a glucose value to its range label. Boundary values land
// on the lower-risk side of each cutoff: Low and High themselves are in
// target, VeryLow and VeryHigh are level 1.
func Classify(value float64, p Profile) (RangeLabel, error) {
	if math.IsNaN(value) {
		return "", ErrMissingValue
	}
	switch {
	case value < p.VeryLow:
		return Level2Hypoglycemia, nil
	case value < p.Low:
		return Level1Hypoglycemia, nil
	case value >= p.TightLow && value <= p.TightHigh:
		return TightTargetRange, nil
	case value <= p.High:
		return TargetRange, nil
	case value <= p.VeryHigh:
		return Level1Hyperglycemia, nil
	default:
		return Level2Hyperglycemia, nil
	}
}

// InTarget reports whether value is within the target band, inclusive of
// both edges. The tight band is a subset of the target band.
func (p Profile) InTarget(value float64) bool {
	return value >= p.Low && value <= p.High
}

// InTightTarget reports whether value is within the tight target band.
func (p Profile) InTightTarget(value float64) bool {
	return value >= p.TightLow && value <= p.TightHigh
}

// Hypo reports whether value is below the target band.
func (p Profile) Hypo(value float64) bool {
	return value < p.Low
}

// Hyper reports whether value is above the target band.
func (p Profile) Hyper(value float64) bool {
	return value > p.High
}

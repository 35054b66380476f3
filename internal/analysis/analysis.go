// Package analysis assembles the full metric report for a glucose
// trace. Each metric package is invoked independently on the same
// trace; the report groups the scalars the way downstream consumers
// expect them.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/glucolab/agata/internal/compare"
	"github.com/glucolab/agata/internal/events"
	"github.com/glucolab/agata/internal/excursion"
	"github.com/glucolab/agata/internal/log"
	"github.com/glucolab/agata/internal/quality"
	"github.com/glucolab/agata/internal/risk"
	"github.com/glucolab/agata/internal/target"
	"github.com/glucolab/agata/internal/timeinrange"
	"github.com/glucolab/agata/internal/trace"
	"github.com/glucolab/agata/internal/transform"
	"github.com/glucolab/agata/internal/variability"
)

// Metric is a result scalar that may be undefined. Undefined values
// are carried as NaN in memory and rendered as JSON null, since NaN is
// not representable in JSON. Infinities are treated as undefined too so
// a report always marshals.
type Metric float64

// Defined reports whether the metric carries a finite value.
func (m Metric) Defined() bool {
	return !math.IsNaN(float64(m)) && !math.IsInf(float64(m), 0)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// Variability groups the dispersion and excursion metrics.
type Variability struct {
	MeanGlucose    Metric `json:"mean_glucose"`
	MedianGlucose  Metric `json:"median_glucose"`
	StdGlucose     Metric `json:"std_glucose"`
	CvGlucose      Metric `json:"cv_glucose"`
	RangeGlucose   Metric `json:"range_glucose"`
	IqrGlucose     Metric `json:"iqr_glucose"`
	AucGlucose     Metric `json:"auc_glucose"`
	Gmi            Metric `json:"gmi"`
	Cogi           Metric `json:"cogi"`
	Conga          Metric `json:"conga"`
	JIndex         Metric `json:"j_index"`
	MagePlusIndex  Metric `json:"mage_plus_index"`
	MageMinusIndex Metric `json:"mage_minus_index"`
	MageIndex      Metric `json:"mage_index"`
	EfIndex        Metric `json:"ef_index"`
	Modd           Metric `json:"modd"`
	SddmIndex      Metric `json:"sddm_index"`
	SdwIndex       Metric `json:"sdw_index"`
	StdGlucoseRoc  Metric `json:"std_glucose_roc"`
	Cvga           Metric `json:"cvga"`
}

// TimeInRanges groups the range-partition percentages.
type TimeInRanges struct {
	TimeInTarget          Metric `json:"time_in_target"`
	TimeInTightTarget     Metric `json:"time_in_tight_target"`
	TimeInHypoglycemia    Metric `json:"time_in_hypoglycemia"`
	TimeInL1Hypoglycemia  Metric `json:"time_in_l1_hypoglycemia"`
	TimeInL2Hypoglycemia  Metric `json:"time_in_l2_hypoglycemia"`
	TimeInHyperglycemia   Metric `json:"time_in_hyperglycemia"`
	TimeInL1Hyperglycemia Metric `json:"time_in_l1_hyperglycemia"`
	TimeInL2Hyperglycemia Metric `json:"time_in_l2_hyperglycemia"`
}

// Risk groups the blood-glucose risk indices.
type Risk struct {
	Adrr Metric `json:"adrr"`
	Lbgi Metric `json:"lbgi"`
	Hbgi Metric `json:"hbgi"`
	Bgri Metric `json:"bgri"`
	Gri  Metric `json:"gri"`
}

// GlycemicTransformation groups the nonlinear penalty scores.
type GlycemicTransformation struct {
	GradeScore      Metric `json:"grade_score"`
	GradeHypoScore  Metric `json:"grade_hypo_score"`
	GradeHyperScore Metric `json:"grade_hyper_score"`
	GradeEuScore    Metric `json:"grade_eu_score"`
	Igc             Metric `json:"igc"`
	HypoIndex       Metric `json:"hypo_index"`
	HyperIndex      Metric `json:"hyper_index"`
	MrIndex         Metric `json:"mr_index"`
}

// Events groups the detected glycemic episodes.
type Events struct {
	Hypoglycemic         events.ByLevel `json:"hypoglycemic_events"`
	Hyperglycemic        events.ByLevel `json:"hyperglycemic_events"`
	ExtendedHypoglycemic events.Summary `json:"extended_hypoglycemic_events"`
}

// DataQuality reports how much of the trace was usable.
type DataQuality struct {
	DaysOfObservation Metric `json:"number_days_of_observation"`
	MissingPercentage Metric `json:"missing_glucose_percentage"`
}

// Report is the complete analysis of one trace.
type Report struct {
	ID                     string                 `json:"id"`
	GeneratedAt            time.Time              `json:"generated_at"`
	GlycemicTarget         string                 `json:"glycemic_target"`
	Variability            Variability            `json:"variability"`
	TimeInRanges           TimeInRanges           `json:"time_in_ranges"`
	Risk                   Risk                   `json:"risk"`
	GlycemicTransformation GlycemicTransformation `json:"glycemic_transformation"`
	Events                 Events                 `json:"events"`
	DataQuality            DataQuality            `json:"data_quality"`
}

// Analyzer runs full reports against a fixed glycemic target profile.
type Analyzer struct {
	profile target.Profile
}

// New returns an Analyzer for the named glycemic target profile.
func New(profileName string) (*Analyzer, error) {
	prof, err := target.Resolve(profileName)
	if err != nil {
		return nil, err
	}
	return &Analyzer{profile: prof}, nil
}

// Profile returns the resolved target profile the Analyzer uses.
func (a *Analyzer) Profile() target.Profile {
	return a.profile
}

// Analyze computes the full report for tr.
func (a *Analyzer) Analyze(tr *trace.Trace) (*Report, error) {
	started := time.Now()

	r := &Report{
		ID:             uuid.NewString(),
		GeneratedAt:    started.UTC(),
		GlycemicTarget: a.profile.Name,
	}

	conga, err := variability.Conga(tr, variability.DefaultCongaLag)
	if err != nil {
		return nil, fmt.Errorf("conga: %w", err)
	}
	exc, err := excursion.Analyze(tr, excursion.Params{})
	if err != nil {
		return nil, fmt.Errorf("excursion analysis: %w", err)
	}

	r.Variability = Variability{
		MeanGlucose:    Metric(variability.Mean(tr)),
		MedianGlucose:  Metric(variability.Median(tr)),
		StdGlucose:     Metric(variability.Std(tr)),
		CvGlucose:      Metric(variability.CV(tr)),
		RangeGlucose:   Metric(variability.Range(tr)),
		IqrGlucose:     Metric(variability.IQR(tr)),
		AucGlucose:     Metric(variability.AUC(tr)),
		Gmi:            Metric(variability.GMI(tr)),
		Cogi:           Metric(variability.COGI(tr)),
		Conga:          Metric(conga),
		JIndex:         Metric(variability.JIndex(tr)),
		MagePlusIndex:  Metric(exc.MagePlus),
		MageMinusIndex: Metric(exc.MageMinus),
		MageIndex:      Metric(exc.Mage),
		EfIndex:        Metric(exc.Frequency),
		Modd:           Metric(variability.Modd(tr)),
		SddmIndex:      Metric(variability.SddmIndex(tr)),
		SdwIndex:       Metric(variability.SdwIndex(tr)),
		StdGlucoseRoc:  Metric(variability.StdGlucoseRoc(tr)),
		Cvga:           Metric(risk.CVGA(tr)),
	}

	tir := timeinrange.Compute(tr, a.profile)
	r.TimeInRanges = TimeInRanges{
		TimeInTarget:          Metric(tir.Target),
		TimeInTightTarget:     Metric(tir.TightTarget),
		TimeInHypoglycemia:    Metric(tir.Hypo),
		TimeInL1Hypoglycemia:  Metric(tir.L1Hypo),
		TimeInL2Hypoglycemia:  Metric(tir.L2Hypo),
		TimeInHyperglycemia:   Metric(tir.Hyper),
		TimeInL1Hyperglycemia: Metric(tir.L1Hyper),
		TimeInL2Hyperglycemia: Metric(tir.L2Hyper),
	}

	r.Risk = Risk{
		Adrr: Metric(risk.ADRR(tr)),
		Lbgi: Metric(risk.LBGI(tr)),
		Hbgi: Metric(risk.HBGI(tr)),
		Bgri: Metric(risk.BGRI(tr)),
		Gri:  Metric(risk.GRI(tr)),
	}

	r.GlycemicTransformation = GlycemicTransformation{
		GradeScore:      Metric(transform.Grade(tr)),
		GradeHypoScore:  Metric(transform.GradeHypo(tr)),
		GradeHyperScore: Metric(transform.GradeHyper(tr)),
		GradeEuScore:    Metric(transform.GradeEu(tr)),
		Igc:             Metric(transform.Igc(tr)),
		HypoIndex:       Metric(transform.HypoIndex(tr)),
		HyperIndex:      Metric(transform.HyperIndex(tr)),
		MrIndex:         Metric(transform.MrIndex(tr)),
	}

	hypo, err := events.DetectHypoglycemic(tr, a.profile, events.DefaultHypoParams())
	if err != nil {
		return nil, fmt.Errorf("hypoglycemic events: %w", err)
	}
	hyper, err := events.DetectHyperglycemic(tr, a.profile, events.DefaultHyperParams())
	if err != nil {
		return nil, fmt.Errorf("hyperglycemic events: %w", err)
	}
	extended, err := events.DetectExtendedHypoglycemic(tr, a.profile, events.DefaultExtendedHypoParams())
	if err != nil {
		return nil, fmt.Errorf("extended hypoglycemic events: %w", err)
	}
	r.Events = Events{
		Hypoglycemic:         hypo,
		Hyperglycemic:        hyper,
		ExtendedHypoglycemic: extended,
	}

	dq := quality.Assess(tr)
	r.DataQuality = DataQuality{
		DaysOfObservation: Metric(dq.DaysOfObservation),
		MissingPercentage: Metric(dq.MissingPercentage),
	}

	log.Debugw("analysis complete",
		"id", r.ID,
		"samples", tr.Len(),
		"profile", a.profile.Name,
		"elapsed", time.Since(started),
	)
	return r, nil
}

// ComparisonReport is the agreement report for a reference/candidate
// trace pair.
type ComparisonReport struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Rmse        Metric    `json:"rmse"`
	GRmse       Metric    `json:"g_rmse"`
	Mard        Metric    `json:"mard"`
	Mad         Metric    `json:"mad"`
	Cod         Metric    `json:"cod"`
	ValidPairs  int       `json:"valid_pairs"`
}

// CompareTraces measures agreement between a reference and a candidate
// trace.
func CompareTraces(reference, candidate *trace.Trace) *ComparisonReport {
	res := compare.Compare(reference, candidate)
	return &ComparisonReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Rmse:        Metric(res.Rmse),
		GRmse:       Metric(res.GRmse),
		Mard:        Metric(res.Mard),
		Mad:         Metric(res.Mad),
		Cod:         Metric(res.Cod),
		ValidPairs:  res.Pairs,
	}
}

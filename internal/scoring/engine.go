// Package scoring rates checklist items on five weighted criteria and maps
// the result to a priority band.
package scoring

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// Criterion weights. They sum to 1.0.
const (
	WeightApproval          = 0.30
	WeightCostSchedule      = 0.25
	WeightEnvironmentSafety = 0.20
	WeightOperation         = 0.15
	WeightReversibility     = 0.10
)

// Weights lists the criterion weights in criterion order.
var Weights = [NumCriteria]float64{
	WeightApproval,
	WeightCostSchedule,
	WeightEnvironmentSafety,
	WeightOperation,
	WeightReversibility,
}

const (
	MinScore = 1
	MaxScore = 5

	factorTolerance = 1e-9
)

var (
	allowedUncertainty    = []float64{0.9, 1.0, 1.1, 1.2}
	allowedDependency     = []float64{1.0, 1.1, 1.2}
	allowedRegulatoryGate = []float64{0, 0.5}
)

var (
	ErrInvalidCriterionScore = eris.New("criterion score out of range")
	ErrInvalidFactor         = eris.New("factor not in allowed set")
)

var recommendations = map[doctree.Priority]string{
	doctree.PriorityCritical: "Immediate review and action required",
	doctree.PriorityHigh:     "Review as soon as possible",
	doctree.PriorityMedium:   "Review on a regular schedule",
	doctree.PriorityLow:      "Review when capacity allows",
	doctree.PriorityMinimal:  "Review only as needed",
}

// Evaluate runs the weighted priority formula on explicit inputs.
//
//	base  = round2(Σ weight·score)
//	exact = base·U·D + G
//	final = clamp(floor(exact + 0.5), 1, 5)
//	raw   = round2(exact)
func Evaluate(criteria [NumCriteria]doctree.CriterionScore, f Factors) (*doctree.WeightEvaluation, error) {
	for i, c := range criteria {
		if c.Score < MinScore || c.Score > MaxScore {
			return nil, eris.Wrapf(ErrInvalidCriterionScore, "%s = %d", Criterion(i+1), c.Score)
		}
	}
	if !oneOf(f.Uncertainty, allowedUncertainty) {
		return nil, eris.Wrapf(ErrInvalidFactor, "uncertainty_factor = %v", f.Uncertainty)
	}
	if !oneOf(f.Dependency, allowedDependency) {
		return nil, eris.Wrapf(ErrInvalidFactor, "dependency_factor = %v", f.Dependency)
	}
	if !oneOf(f.RegulatoryGate, allowedRegulatoryGate) {
		return nil, eris.Wrapf(ErrInvalidFactor, "regulatory_gate_flag = %v", f.RegulatoryGate)
	}

	var sum float64
	for i, c := range criteria {
		sum += Weights[i] * float64(c.Score)
	}
	base := round2(sum)
	exact := base*f.Uncertainty*f.Dependency + f.RegulatoryGate
	final := clamp(int(math.Floor(exact+0.5)), MinScore, MaxScore)
	raw := round2(exact)
	priority := PriorityFor(final)

	return &doctree.WeightEvaluation{
		Evaluation: doctree.Evaluation{
			Approval:           criteria[0],
			CostSchedule:       criteria[1],
			EnvironmentSafety:  criteria[2],
			Operation:          criteria[3],
			Reversibility:      criteria[4],
			BaseScore:          base,
			UncertaintyFactor:  f.Uncertainty,
			DependencyFactor:   f.Dependency,
			RegulatoryGateFlag: f.RegulatoryGate,
			FinalScoreRaw:      raw,
			FinalScore:         final,
		},
		Priority:       priority,
		Recommendation: recommendations[priority],
	}, nil
}

// EvaluateText scores text with the rule table and runs the formula on the
// result.
func EvaluateText(text string) (*doctree.WeightEvaluation, error) {
	a := ScoreText(text)
	return Evaluate(a.Criteria, a.Factors)
}

// PriorityFor maps a final score to its band.
func PriorityFor(final int) doctree.Priority {
	switch {
	case final >= 5:
		return doctree.PriorityCritical
	case final == 4:
		return doctree.PriorityHigh
	case final == 3:
		return doctree.PriorityMedium
	case final == 2:
		return doctree.PriorityLow
	}
	return doctree.PriorityMinimal
}

// Recommendation returns the fixed recommendation for a band.
func Recommendation(p doctree.Priority) string {
	return recommendations[p]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func oneOf(v float64, allowed []float64) bool {
	for _, a := range allowed {
		if math.Abs(v-a) <= factorTolerance {
			return true
		}
	}
	return false
}

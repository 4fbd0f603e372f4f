package scoring

import (
	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
)

var ErrMissingCriterion = eris.New("criterion score missing")

// Input is the JSON form of explicit engine inputs, keyed like the
// evaluation it produces. Omitted factors are neutral.
type Input struct {
	Approval           *doctree.CriterionScore `json:"C1_approval"`
	CostSchedule       *doctree.CriterionScore `json:"C2_cost_schedule"`
	EnvironmentSafety  *doctree.CriterionScore `json:"C3_environment_safety"`
	Operation          *doctree.CriterionScore `json:"C4_operation"`
	Reversibility      *doctree.CriterionScore `json:"C5_reversibility"`
	UncertaintyFactor  *float64                `json:"uncertainty_factor,omitempty"`
	DependencyFactor   *float64                `json:"dependency_factor,omitempty"`
	RegulatoryGateFlag *float64                `json:"regulatory_gate_flag,omitempty"`
}

// Resolve returns the criteria in order and the factors with defaults
// filled in. Every criterion must be present.
func (in Input) Resolve() ([NumCriteria]doctree.CriterionScore, Factors, error) {
	var criteria [NumCriteria]doctree.CriterionScore
	given := [NumCriteria]*doctree.CriterionScore{
		in.Approval, in.CostSchedule, in.EnvironmentSafety, in.Operation, in.Reversibility,
	}
	for i, c := range given {
		if c == nil {
			return criteria, Factors{}, eris.Wrapf(ErrMissingCriterion, "%s", Criterion(i+1))
		}
		criteria[i] = *c
	}

	f := DefaultFactors
	if in.UncertaintyFactor != nil {
		f.Uncertainty = *in.UncertaintyFactor
	}
	if in.DependencyFactor != nil {
		f.Dependency = *in.DependencyFactor
	}
	if in.RegulatoryGateFlag != nil {
		f.RegulatoryGate = *in.RegulatoryGateFlag
	}
	return criteria, f, nil
}

// EvaluateInput resolves in and runs Evaluate on it.
func EvaluateInput(in Input) (*doctree.WeightEvaluation, error) {
	criteria, f, err := in.Resolve()
	if err != nil {
		return nil, err
	}
	return Evaluate(criteria, f)
}

// IsInputError reports whether err came from invalid engine inputs rather
// than from reading them.
func IsInputError(err error) bool {
	return eris.Is(err, ErrMissingCriterion) ||
		eris.Is(err, ErrInvalidCriterionScore) ||
		eris.Is(err, ErrInvalidFactor)
}

package scoring

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateInputFromJSON(t *testing.T) {
	raw := `{
		"C1_approval": {"score": 5, "rationale": "permit"},
		"C2_cost_schedule": {"score": 4},
		"C3_environment_safety": {"score": 5},
		"C4_operation": {"score": 2},
		"C5_reversibility": {"score": 5},
		"dependency_factor": 1.2,
		"regulatory_gate_flag": 0.5
	}`
	var in Input
	require.NoError(t, json.Unmarshal([]byte(raw), &in))

	ev, err := EvaluateInput(in)
	require.NoError(t, err)
	assert.InDelta(t, 4.3, ev.Evaluation.BaseScore, 1e-9)
	assert.InDelta(t, 5.66, ev.Evaluation.FinalScoreRaw, 1e-9)
	assert.InDelta(t, 1.0, ev.Evaluation.UncertaintyFactor, 1e-9, "omitted factor is neutral")
	assert.Equal(t, "permit", ev.Evaluation.Approval.Rationale)
}

func TestEvaluateInputErrors(t *testing.T) {
	var in Input
	_, err := EvaluateInput(in)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingCriterion))
	assert.Contains(t, err.Error(), "C1_approval")
	assert.True(t, IsInputError(err))

	require.NoError(t, json.Unmarshal([]byte(`{
		"C1_approval": {"score": 6}, "C2_cost_schedule": {"score": 3},
		"C3_environment_safety": {"score": 3}, "C4_operation": {"score": 3},
		"C5_reversibility": {"score": 3}}`), &in))
	_, err = EvaluateInput(in)
	assert.True(t, IsInputError(err))
	assert.True(t, eris.Is(err, ErrInvalidCriterionScore))

	in.Approval.Score = 3
	u := 0.5
	in.UncertaintyFactor = &u
	_, err = EvaluateInput(in)
	assert.True(t, eris.Is(err, ErrInvalidFactor))

	assert.False(t, IsInputError(eris.New("unexpected EOF")))
}

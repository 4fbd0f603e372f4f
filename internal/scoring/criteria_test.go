package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/doctree"
)

func TestScoreTextDefaults(t *testing.T) {
	a := ScoreText("Buy servers")
	for c := Approval; c <= Reversibility; c++ {
		assert.Equal(t, DefaultCriterionScore, a.Get(c).Score, c.String())
		assert.NotEmpty(t, a.Get(c).Rationale)
	}
	assert.Equal(t, DefaultFactors, a.Factors)
}

func TestScoreTextRules(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		criterion Criterion
		want      int
	}{
		{"approval", "건축 허가 신청", Approval, 4},
		{"approval english", "File the building permit", Approval, 4},
		{"statutory approval", "법정 인허가 절차 이행", Approval, 5},
		{"mandatory without approval term", "필수 교육 이수", Approval, 3},
		{"cost", "Update the CAPEX budget", CostSchedule, 4},
		{"schedule", "공정 지연 대응", CostSchedule, 4},
		{"environment", "소음 저감 대책", EnvironmentSafety, 4},
		{"eia", "환경영향평가 협의", EnvironmentSafety, 5},
		{"safety only", "화재 안전 점검", EnvironmentSafety, 4},
		{"operation", "수하물 서비스 개선", Operation, 4},
		{"capacity", "Increase terminal throughput", Operation, 5},
		{"structure", "Revise the layout", Reversibility, 4},
		{"construction", "구조물 건설", Reversibility, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreText(tt.text).Get(tt.criterion).Score)
		})
	}
}

func TestScoreTextLaterLowerRuleKeepsHigherRationale(t *testing.T) {
	// The safety rule (4) runs after the assessment rule (5) on the same criterion.
	a := ScoreText("EIA and fire safety plan")
	got := a.Get(EnvironmentSafety)
	assert.Equal(t, 5, got.Score)
	assert.Equal(t, "Subject to environmental impact assessment", got.Rationale)
}

func TestScoreTextFactors(t *testing.T) {
	a := ScoreText("법정 승인 계획 검토")
	assert.InDelta(t, 0.5, a.Factors.RegulatoryGate, 1e-9)
	assert.InDelta(t, 1.1, a.Factors.Uncertainty, 1e-9)
	assert.InDelta(t, 1.0, a.Factors.Dependency, 1e-9)

	a = ScoreText("Core network redesign")
	assert.InDelta(t, 1.2, a.Factors.Dependency, 1e-9)
}

func TestScoreTextLatinKeywordsMatchWholeWords(t *testing.T) {
	a := ScoreText("Explain the keyword score for the monkey firewall")
	assert.Equal(t, DefaultFactors, a.Factors)
	assert.Equal(t, DefaultCriterionScore, a.Get(EnvironmentSafety).Score)

	a = ScoreText("Reviewed permits and plans for key structural work")
	assert.Equal(t, 4, a.Get(Approval).Score, "plural")
	assert.Equal(t, 5, a.Get(Reversibility).Score, "stem")
	assert.InDelta(t, 1.1, a.Factors.Uncertainty, 1e-9)
	assert.InDelta(t, 1.2, a.Factors.Dependency, 1e-9)

	// Hangul keywords still match inside longer words.
	assert.Equal(t, 4, ScoreText("인허가신청서 제출").Get(Approval).Score)
}

func TestScoreTextDeterministic(t *testing.T) {
	text := "주요 구조물 건설 일정 및 예산 검토, 환경영향평가 법정 협의"
	first := ScoreText(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ScoreText(text))
	}
}

func TestRuleTableIsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rules {
		assert.False(t, seen[r.Category], "duplicate category %s", r.Category)
		seen[r.Category] = true
		assert.NotEmpty(t, r.Keywords, r.Category)
		if r.Criterion != 0 {
			assert.GreaterOrEqual(t, r.Score, MinScore, r.Category)
			assert.LessOrEqual(t, r.Score, MaxScore, r.Category)
			assert.NotEmpty(t, r.Rationale, r.Category)
		}
		for _, kw := range r.Keywords {
			assert.Equal(t, kw, toLowerASCII(kw), "keyword %q must be lower-case", kw)
			assert.True(t, matchKeyword(strings.TrimSuffix(kw, "*"), kw), "keyword %q must match itself", kw)
		}
	}
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestScoreWithCustomRules(t *testing.T) {
	rules := []Rule{
		{Category: "a", Criterion: Operation, Keywords: []string{"x"}, Score: 2, Rationale: "lower"},
		{Category: "b", Criterion: Operation, Keywords: []string{"x"}, Score: 4, Rationale: "higher"},
	}
	a := scoreWith(rules, "x")
	// A rule below the current score does not apply.
	assert.Equal(t, doctree.CriterionScore{Score: 4, Rationale: "higher"}, a.Get(Operation))
}

func TestApplyScoresEveryItem(t *testing.T) {
	root := doctree.NewSection("Plan")
	s := root.AddChild("1. Permits")
	s.AddItem("법정 인허가 신청")
	s.AddItem("Order stationery")
	root.AddItem("Key construction schedule review")

	res := Apply(root, zap.NewNop())
	assert.Equal(t, ApplyResult{Scored: 3}, res)

	for _, n := range doctree.Number(root) {
		require.NotNil(t, n.Item.Evaluation, n.Item.Text)
		assert.Equal(t, n.Item.Evaluation.Evaluation.FinalScore, n.Item.Score)
	}
	assert.Equal(t, 3, s.Checklist[1].Score)
}

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1. Setup", "1. Setup"},
		{"  II.   Background  ", "II. Background"},
		{"따라서 공사 계획", "공사 계획"},
		{"그리고 또한 검토", "검토"},
		{"However, the schedule", "the schedule"},
		{"Soil survey", "Soil survey"},
		{"And", "And"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeaderText(tt.in), tt.in)
	}
}

func TestHeaderTextTruncates(t *testing.T) {
	long := strings.Repeat("가", 150)
	got := HeaderText(long)
	assert.Equal(t, 100, len([]rune(got)))
}

func TestListText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"- Buy servers", "Buy servers"},
		{"• Install OS", "Install OS"},
		{"(3) 허가 신청", "허가 신청"},
		{"2) Order parts", "Order parts"},
		{"1. Setup", "Setup"},
		{"가) 현장 조사", "현장 조사"},
		{"(a) first", "first"},
		{"② 두번째", "두번째"},
		{"No marker here", "No marker here"},
		{"- - nested", "- nested"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ListText(tt.in), tt.in)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "환경영향평가", Fold("환경 영향 평가"))
	assert.Equal(t, "budgetreview", Fold("Budget  Review"))
	assert.Equal(t, "abc123", Fold("ＡＢＣ１２３"))
	// Conjoining jamo compose to the precomposed syllable.
	assert.Equal(t, "한", Fold("\u1112\u1161\u11ab"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

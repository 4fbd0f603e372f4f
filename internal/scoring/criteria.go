package scoring

import (
	"regexp"
	"strings"
	"sync"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// DefaultCriterionScore is what a criterion scores when no rule fires.
const DefaultCriterionScore = 3

// Assessment is the rule-based reading of one text: a score per criterion
// plus the adjustment factors.
type Assessment struct {
	Criteria [NumCriteria]doctree.CriterionScore
	Factors  Factors
}

// Get returns the score for c.
func (a Assessment) Get(c Criterion) doctree.CriterionScore {
	return a.Criteria[c-1]
}

// ScoreText applies Rules to text. It has no side effects and returns the
// same assessment for the same text.
func ScoreText(text string) Assessment {
	return scoreWith(Rules, text)
}

func scoreWith(rules []Rule, text string) Assessment {
	a := Assessment{Factors: DefaultFactors}
	for i := range a.Criteria {
		a.Criteria[i] = doctree.CriterionScore{Score: DefaultCriterionScore, Rationale: defaultRationales[i]}
	}

	lower := strings.ToLower(text)
	for _, r := range rules {
		if !containsAny(lower, r.Keywords) {
			continue
		}
		if r.Criterion != 0 {
			cur := &a.Criteria[r.Criterion-1]
			if r.Intensifier && cur.Score <= DefaultCriterionScore {
				continue
			}
			if r.Score >= cur.Score {
				cur.Score = r.Score
				cur.Rationale = r.Rationale
			}
		}
		if r.Sets.Uncertainty != 0 {
			a.Factors.Uncertainty = r.Sets.Uncertainty
		}
		if r.Sets.Dependency != 0 {
			a.Factors.Dependency = r.Sets.Dependency
		}
		if r.Sets.RegulatoryGate != 0 {
			a.Factors.RegulatoryGate = r.Sets.RegulatoryGate
		}
	}
	return a
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if matchKeyword(s, kw) {
			return true
		}
	}
	return false
}

// wordPatterns caches the compiled pattern of every Latin keyword.
var wordPatterns sync.Map // keyword -> *regexp.Regexp

// matchKeyword reports whether kw occurs in s. Hangul and other non-ASCII
// keywords match anywhere.
// ASCII keywords match whole words with a plain inflection (s, es, d, ed,
// ing); a trailing * marks a stem that matches any continuation.
func matchKeyword(s, kw string) bool {
	if !isASCII(kw) {
		return strings.Contains(s, kw)
	}
	if re, ok := wordPatterns.Load(kw); ok {
		return re.(*regexp.Regexp).MatchString(s)
	}
	re := compileKeyword(kw)
	wordPatterns.Store(kw, re)
	return re.MatchString(s)
}

func compileKeyword(kw string) *regexp.Regexp {
	if stem, ok := strings.CutSuffix(kw, "*"); ok {
		return regexp.MustCompile(`\b` + regexp.QuoteMeta(stem))
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `(?:s|es|d|ed|ing)?\b`)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

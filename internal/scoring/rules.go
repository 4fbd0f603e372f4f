package scoring

// Criterion identifies one of the five weighted criteria.
type Criterion int

const (
	Approval Criterion = iota + 1
	CostSchedule
	EnvironmentSafety
	Operation
	Reversibility
)

// NumCriteria is the number of weighted criteria.
const NumCriteria = 5

func (c Criterion) String() string {
	switch c {
	case Approval:
		return "C1_approval"
	case CostSchedule:
		return "C2_cost_schedule"
	case EnvironmentSafety:
		return "C3_environment_safety"
	case Operation:
		return "C4_operation"
	case Reversibility:
		return "C5_reversibility"
	}
	return "none"
}

// Factors are the multiplicative and additive adjustments applied on top of
// the weighted base score.
type Factors struct {
	Uncertainty    float64 // U
	Dependency     float64 // D
	RegulatoryGate float64 // G
}

// DefaultFactors leaves the base score untouched.
var DefaultFactors = Factors{Uncertainty: 1.0, Dependency: 1.0, RegulatoryGate: 0}

// Rule is one keyword category. When any keyword occurs in the lower-cased
// text (Latin keywords as whole words, a trailing * for a stem), the rule
// raises Criterion to Score (if that is not lower than the
// current score) and applies every non-zero field of Sets.
//
// An Intensifier rule only fires once an earlier rule has already raised
// the same criterion above its default.
type Rule struct {
	Category    string
	Criterion   Criterion // zero for factor-only rules
	Keywords    []string
	Score       int
	Rationale   string
	Intensifier bool
	Sets        Factors
}

// Rules is evaluated top to bottom for every text.
var Rules = []Rule{
	{
		Category:  "approval",
		Criterion: Approval,
		Keywords: []string{
			"승인", "인허가", "허가", "면허", "등록", "신고", "협의", "법정", "규제",
			"approval", "approve", "permit", "licen*", "registration", "consent", "authoriz*", "regulat*",
		},
		Score:     4,
		Rationale: "Requires a permit, approval or regulatory filing",
	},
	{
		Category:    "approval_statutory",
		Criterion:   Approval,
		Keywords:    []string{"필수", "법정", "mandatory", "statutory", "required by law", "legally required"},
		Score:       5,
		Rationale:   "Statutory approval gate",
		Intensifier: true,
		Sets:        Factors{RegulatoryGate: 0.5},
	},
	{
		Category:  "cost",
		Criterion: CostSchedule,
		Keywords:  []string{"비용", "예산", "capex", "opex", "투자", "지출", "cost", "budget", "expense", "investment", "spend"},
		Score:     4,
		Rationale: "Affects cost or budget",
	},
	{
		Category:  "schedule",
		Criterion: CostSchedule,
		Keywords:  []string{"일정", "공정", "지연", "납기", "완료", "기한", "schedule", "deadline", "delay", "milestone", "timeline"},
		Score:     4,
		Rationale: "Affects schedule or deadlines",
	},
	{
		Category:  "environment",
		Criterion: EnvironmentSafety,
		Keywords: []string{
			"환경", "eia", "소음", "대기", "수질", "폐기물", "민원",
			"environment", "noise", "emission", "air quality", "water quality", "waste", "complaint",
		},
		Score:     4,
		Rationale: "Has environmental impact",
	},
	{
		Category:    "environment_assessment",
		Criterion:   EnvironmentSafety,
		Keywords:    []string{"환경영향평가", "eia", "environmental impact"},
		Score:       5,
		Rationale:   "Subject to environmental impact assessment",
		Intensifier: true,
	},
	{
		Category:  "safety",
		Criterion: EnvironmentSafety,
		Keywords:  []string{"안전", "위험", "사고", "재해", "보안", "화재", "방재", "safety", "hazard", "accident", "disaster", "security", "fire"},
		Score:     4,
		Rationale: "Safety or security related",
	},
	{
		Category:  "operation",
		Criterion: Operation,
		Keywords: []string{
			"운영", "otp", "수하물", "회전율", "용량", "처리량", "서비스", "효율",
			"operation", "on-time", "baggage", "turnaround", "capacity", "throughput", "service", "efficien*",
		},
		Score:     4,
		Rationale: "Affects day-to-day operations",
	},
	{
		Category:    "operation_capacity",
		Criterion:   Operation,
		Keywords:    []string{"용량", "처리량", "capacity", "throughput"},
		Score:       5,
		Rationale:   "Determines operating capacity",
		Intensifier: true,
	},
	{
		Category:  "structure",
		Criterion: Reversibility,
		Keywords: []string{
			"건설", "구조물", "인프라", "설계", "배치", "레이아웃", "설치",
			"construction", "structur*", "infrastructure", "design", "layout", "install",
		},
		Score:     4,
		Rationale: "Physical change that is costly to revise",
	},
	{
		Category:    "structure_irreversible",
		Criterion:   Reversibility,
		Keywords:    []string{"건설", "구조물", "construction", "structur*"},
		Score:       5,
		Rationale:   "Effectively irreversible once built",
		Intensifier: true,
	},
	{
		Category: "uncertainty",
		Keywords: []string{"계획", "검토", "plan", "planning", "review"},
		Sets:     Factors{Uncertainty: 1.1},
	},
	{
		Category: "dependency",
		Keywords: []string{"기본", "핵심", "주요", "core", "key", "critical", "fundamental"},
		Sets:     Factors{Dependency: 1.2},
	},
}

// defaultRationales explain the neutral score a criterion gets when no rule
// fires.
var defaultRationales = [NumCriteria]string{
	"No approval requirement found",
	"No cost or schedule impact found",
	"No environmental or safety impact found",
	"No operational impact found",
	"No structural commitment found",
}

package doctree

// Level is the inferred structural depth of a fragment. 0 is the document
// title, 3 is body detail.
type Level int

const (
	LevelTitle Level = iota
	LevelSection
	LevelItem
	LevelDetail
)

// Kind is the inferred content type of a fragment.
type Kind string

const (
	KindHeader    Kind = "header"
	KindList      Kind = "list"
	KindParagraph Kind = "paragraph"
)

// DefaultMaxScore is the max_score every section carries outside keyword mode.
const DefaultMaxScore = 100

// MaxTitleRunes bounds section titles after normalization.
const MaxTitleRunes = 100

// Fragment is one extracted unit of text plus the layout hints that came
// with it. Level and Kind are filled in by the classifier.
type Fragment struct {
	Text     string
	Level    Level
	Kind     Kind
	Bold     bool
	FontSize float64 // points, 0 when unknown
	Style    string  // style name from the source, e.g. "Heading 2"
	Page     int     // 1-based, 0 when the source has no pages
	Indent   int     // nesting depth hint, 0 when unknown
}

// Section is a node in the converted tree.
type Section struct {
	Title     string
	Body      string
	Children  []*Section
	Checklist []*ChecklistItem
	MaxScore  int
}

// NewSection returns an empty section with the default max score.
func NewSection(title string) *Section {
	return &Section{Title: title, MaxScore: DefaultMaxScore}
}

// AddChild appends a child section and returns it.
func (s *Section) AddChild(title string) *Section {
	child := NewSection(title)
	s.Children = append(s.Children, child)
	return child
}

// AddItem appends a new unchecked checklist item and returns it.
func (s *Section) AddItem(text string) *ChecklistItem {
	item := NewChecklistItem(text)
	s.Checklist = append(s.Checklist, item)
	return item
}

// AppendBody adds text to the section body, separated by a blank line.
func (s *Section) AppendBody(text string) {
	if text == "" {
		return
	}
	if s.Body == "" {
		s.Body = text
		return
	}
	s.Body += "\n\n" + text
}

// ChecklistItem is an actionable line owned by exactly one section.
type ChecklistItem struct {
	Text       string
	Summary    string
	Detail     string
	Checked    bool
	Score      int
	Evaluation *WeightEvaluation
}

// NewChecklistItem returns an unchecked item with score 1.
func NewChecklistItem(text string) *ChecklistItem {
	return &ChecklistItem{Text: text, Summary: text, Score: 1}
}

// SetEvaluation replaces the item's evaluation and adopts its final score.
func (i *ChecklistItem) SetEvaluation(ev *WeightEvaluation) {
	i.Evaluation = ev
	if ev != nil {
		i.Score = ev.Evaluation.FinalScore
	}
}

// Priority names the band a final score falls into.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
	PriorityMinimal  Priority = "Minimal"
)

// CriterionScore is one scored criterion with the reason it got that score.
type CriterionScore struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

// Evaluation holds the inputs and results of one weighted priority run.
type Evaluation struct {
	Approval           CriterionScore `json:"C1_approval"`
	CostSchedule       CriterionScore `json:"C2_cost_schedule"`
	EnvironmentSafety  CriterionScore `json:"C3_environment_safety"`
	Operation          CriterionScore `json:"C4_operation"`
	Reversibility      CriterionScore `json:"C5_reversibility"`
	BaseScore          float64        `json:"base_score"`
	UncertaintyFactor  float64        `json:"uncertainty_factor"`
	DependencyFactor   float64        `json:"dependency_factor"`
	RegulatoryGateFlag float64        `json:"regulatory_gate_flag"`
	FinalScoreRaw      float64        `json:"final_score_raw"`
	FinalScore         int            `json:"final_score"`
}

// WeightEvaluation is the evaluation attached to a checklist item.
type WeightEvaluation struct {
	Evaluation     Evaluation `json:"evaluation"`
	Priority       Priority   `json:"priority"`
	Recommendation string     `json:"recommendation"`
}

package doctree

import "encoding/json"

type sectionJSON struct {
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	CurrentScore int              `json:"current_score"`
	MaxScore     int              `json:"max_score"`
	Children     []*Section       `json:"children"`
	Checklist    []*ChecklistItem `json:"checklist"`
}

type itemJSON struct {
	Text             string            `json:"text"`
	Summary          string            `json:"summary,omitempty"`
	Detail           string            `json:"detail,omitempty"`
	IsChecked        bool              `json:"is_checked"`
	Score            int               `json:"score"`
	WeightEvaluation *WeightEvaluation `json:"weight_evaluation,omitempty"`
}

// MarshalJSON writes the section in the output tree shape. current_score is
// always 0 and empty collections are written as [] rather than null.
func (s *Section) MarshalJSON() ([]byte, error) {
	out := sectionJSON{
		Title:     s.Title,
		Content:   s.Body,
		MaxScore:  s.MaxScore,
		Children:  s.Children,
		Checklist: s.Checklist,
	}
	if out.Children == nil {
		out.Children = []*Section{}
	}
	if out.Checklist == nil {
		out.Checklist = []*ChecklistItem{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a section written by MarshalJSON.
func (s *Section) UnmarshalJSON(data []byte) error {
	var in sectionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Section{
		Title:     in.Title,
		Body:      in.Content,
		MaxScore:  in.MaxScore,
		Children:  in.Children,
		Checklist: in.Checklist,
	}
	return nil
}

// MarshalJSON omits summary when it only repeats the text.
func (i *ChecklistItem) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		Text:             i.Text,
		Detail:           i.Detail,
		IsChecked:        i.Checked,
		Score:            i.Score,
		WeightEvaluation: i.Evaluation,
	}
	if i.Summary != i.Text {
		out.Summary = i.Summary
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads an item written by MarshalJSON.
func (i *ChecklistItem) UnmarshalJSON(data []byte) error {
	var in itemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*i = ChecklistItem{
		Text:       in.Text,
		Summary:    in.Summary,
		Detail:     in.Detail,
		Checked:    in.IsChecked,
		Score:      in.Score,
		Evaluation: in.WeightEvaluation,
	}
	if i.Summary == "" {
		i.Summary = i.Text
	}
	return nil
}

package structurer

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
)

const (
	MaxDepth = 6
	MaxItems = 500
	// Longest checklist text accepted from the model.
	maxItemRunes = 1000
)

// ErrInvalidTree is wrapped by every validation failure.
var ErrInvalidTree = eris.New("structured tree failed validation")

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`forget\s+(everything|all)|new\s+instructions)`,
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

type rawSection struct {
	Title     *string      `json:"title"`
	Content   *string      `json:"content"`
	Children  []rawSection `json:"children"`
	Checklist []rawItem    `json:"checklist"`
}

// Score decodes into an int so a fractional score fails the whole parse.
type rawItem struct {
	Text      *string `json:"text"`
	Summary   string  `json:"summary"`
	Detail    string  `json:"detail"`
	IsChecked *bool   `json:"is_checked"`
	Score     *int    `json:"score"`
}

// ParseTree decodes a model response and checks it against the output
// schema. Only a fully valid tree is returned.
func ParseTree(raw string) (*doctree.Section, error) {
	body := stripCodeBlock(raw)
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var rs rawSection
	if err := dec.Decode(&rs); err != nil {
		return nil, eris.Wrapf(ErrInvalidTree, "decode: %v (raw: %s)", err, truncate(body, 200))
	}

	items := 0
	root, err := convertSection(rs, 1, &items)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func convertSection(rs rawSection, depth int, items *int) (*doctree.Section, error) {
	if depth > MaxDepth {
		return nil, eris.Wrapf(ErrInvalidTree, "deeper than %d levels", MaxDepth)
	}
	if rs.Title == nil {
		return nil, eris.Wrap(ErrInvalidTree, "section without title")
	}
	title := strings.TrimSpace(*rs.Title)
	if title == "" || utf8.RuneCountInString(title) > doctree.MaxTitleRunes {
		return nil, eris.Wrapf(ErrInvalidTree, "bad title %q", truncate(title, 120))
	}
	if injectionPattern.MatchString(title) {
		return nil, eris.Wrap(ErrInvalidTree, "suspicious title")
	}

	s := doctree.NewSection(title)
	if rs.Content != nil {
		s.Body = strings.TrimSpace(*rs.Content)
	}

	for _, ri := range rs.Checklist {
		item, err := convertItem(ri)
		if err != nil {
			return nil, err
		}
		*items++
		if *items > MaxItems {
			return nil, eris.Wrapf(ErrInvalidTree, "more than %d checklist items", MaxItems)
		}
		s.Checklist = append(s.Checklist, item)
	}
	for _, rc := range rs.Children {
		child, err := convertSection(rc, depth+1, items)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, child)
	}
	return s, nil
}

func convertItem(ri rawItem) (*doctree.ChecklistItem, error) {
	if ri.Text == nil {
		return nil, eris.Wrap(ErrInvalidTree, "checklist item without text")
	}
	text := strings.TrimSpace(*ri.Text)
	if text == "" || utf8.RuneCountInString(text) > maxItemRunes {
		return nil, eris.Wrapf(ErrInvalidTree, "bad item text %q", truncate(text, 120))
	}
	if injectionPattern.MatchString(text) {
		return nil, eris.Wrap(ErrInvalidTree, "suspicious item text")
	}
	if ri.IsChecked != nil && *ri.IsChecked {
		return nil, eris.Wrap(ErrInvalidTree, "item already checked")
	}
	if ri.Score != nil && (*ri.Score < 1 || *ri.Score > 5) {
		return nil, eris.Wrapf(ErrInvalidTree, "item score %d out of range", *ri.Score)
	}

	item := doctree.NewChecklistItem(text)
	if summary := strings.TrimSpace(ri.Summary); summary != "" {
		item.Summary = summary
	}
	item.Detail = strings.TrimSpace(ri.Detail)
	return item, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package scope narrows a classified fragment stream to the items directly
// under a heading that matches a keyword.
package scope

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/normalize"
)

// ErrKeywordNotFound is returned when no fragment contains the keyword.
var ErrKeywordNotFound = eris.New("keyword not found")

// Candidate is one fragment that matched the keyword.
type Candidate struct {
	Text  string        `json:"text"`
	Level doctree.Level `json:"level"`
	Index int           `json:"index"`
}

// Disambiguator picks one of several matching candidates. It returns the
// chosen candidate's Index, or ok=false when nothing was chosen.
type Disambiguator interface {
	Choose(ctx context.Context, keyword string, candidates []Candidate) (index int, ok bool)
}

// DisambiguatorFunc adapts a function to Disambiguator.
type DisambiguatorFunc func(ctx context.Context, keyword string, candidates []Candidate) (int, bool)

func (f DisambiguatorFunc) Choose(ctx context.Context, keyword string, candidates []Candidate) (int, bool) {
	return f(ctx, keyword, candidates)
}

// Result is the outcome of a scoped lookup. When Cancelled is set the other
// fields besides Candidates are empty.
type Result struct {
	Match      Candidate
	Items      []doctree.Fragment
	Candidates []Candidate
	Cancelled  bool
}

// Match returns every fragment whose folded text contains the folded
// keyword, in document order.
func Match(frags []doctree.Fragment, keyword string) []Candidate {
	needle := normalize.Fold(keyword)
	if needle == "" {
		return nil
	}
	var out []Candidate
	for i, f := range frags {
		if containsFolded(f.Text, needle) {
			out = append(out, Candidate{Text: f.Text, Level: f.Level, Index: i})
		}
	}
	return out
}

// Filter finds the fragment matching keyword and collects the fragments one
// level below it, stopping at the next fragment at or above its level.
// Several matches are resolved through d; a nil d, a refusal or an answer
// that is not one of the candidates cancels the lookup.
func Filter(ctx context.Context, frags []doctree.Fragment, keyword string, d Disambiguator) (*Result, error) {
	candidates := Match(frags, keyword)
	switch len(candidates) {
	case 0:
		return nil, eris.Wrapf(ErrKeywordNotFound, "keyword %q", keyword)
	case 1:
		return collect(frags, candidates[0], candidates), nil
	}

	if d == nil || ctx.Err() != nil {
		return &Result{Candidates: candidates, Cancelled: true}, nil
	}
	idx, ok := d.Choose(ctx, keyword, candidates)
	if !ok || ctx.Err() != nil {
		return &Result{Candidates: candidates, Cancelled: true}, nil
	}
	for _, c := range candidates {
		if c.Index == idx {
			return collect(frags, c, candidates), nil
		}
	}
	return &Result{Candidates: candidates, Cancelled: true}, nil
}

func collect(frags []doctree.Fragment, match Candidate, candidates []Candidate) *Result {
	res := &Result{Match: match, Candidates: candidates}
	for _, f := range frags[match.Index+1:] {
		if f.Level <= match.Level {
			break
		}
		if f.Level == match.Level+1 {
			res.Items = append(res.Items, f)
		}
	}
	return res
}

// Tree turns a scoped result into a flat tree: a root titled
// "<base> - <keyword>" whose checklist holds the collected items and whose
// max score is the item count.
func Tree(res *Result, baseTitle, keyword string) *doctree.Section {
	root := doctree.NewSection(normalize.Truncate(fmt.Sprintf("%s - %s", baseTitle, keyword), doctree.MaxTitleRunes))
	for _, f := range res.Items {
		if text := normalize.ListText(f.Text); text != "" {
			root.AddItem(text)
		}
	}
	root.MaxScore = len(root.Checklist)
	return root
}

// Preselected always answers with a fixed candidate index.
type Preselected int

func (p Preselected) Choose(context.Context, string, []Candidate) (int, bool) {
	return int(p), true
}

// Ordinal picks the n-th candidate (1-based) in the order offered.
type Ordinal int

func (o Ordinal) Choose(_ context.Context, _ string, candidates []Candidate) (int, bool) {
	n := int(o)
	if n < 1 || n > len(candidates) {
		return 0, false
	}
	return candidates[n-1].Index, true
}

func containsFolded(text, needle string) bool {
	return strings.Contains(normalize.Fold(text), needle)
}

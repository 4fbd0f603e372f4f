// Package hierarchy folds a flat stream of classified fragments into a
// section tree.
package hierarchy

import (
	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/normalize"
)

// Build converts classified fragments into a tree rooted at a synthetic
// section. The first fragment names the root when it is at level 0,
// otherwise fallbackTitle does. Later level-0 fragments open top-level
// sections under the root.
//
// The input is not modified and the same input always yields the same tree.
func Build(frags []doctree.Fragment, fallbackTitle string) *doctree.Section {
	root := doctree.NewSection(fallbackTitle)
	if len(frags) > 0 && frags[0].Level == doctree.LevelTitle {
		root.Title = titleFor(frags[0].Text)
		frags = frags[1:]
	}

	i := build(root, frags, 0, doctree.LevelTitle)
	for i < len(frags) {
		top := root.AddChild(titleFor(frags[i].Text))
		i = build(top, frags, i+1, doctree.LevelTitle)
	}
	return root
}

// build consumes fragments deeper than parentLevel starting at cursor and
// returns the index of the first fragment it did not consume.
func build(parent *doctree.Section, frags []doctree.Fragment, cursor int, parentLevel doctree.Level) int {
	var current *doctree.Section
	for cursor < len(frags) {
		f := frags[cursor]
		switch {
		case f.Level <= parentLevel:
			return cursor

		case f.Level == parentLevel+1:
			if f.Kind == doctree.KindList {
				if text := normalize.ListText(f.Text); text != "" {
					parent.AddItem(text)
				}
			} else {
				current = parent.AddChild(titleFor(f.Text))
			}
			cursor++

		case current != nil:
			cursor = build(current, frags, cursor, f.Level-1)

		default:
			// Deeper than expected with no open child section.
			parent.AppendBody(normalize.Collapse(f.Text))
			cursor++
		}
	}
	return cursor
}

func titleFor(text string) string {
	if t := normalize.HeaderText(text); t != "" {
		return t
	}
	return normalize.Truncate(normalize.Collapse(text), doctree.MaxTitleRunes)
}

package doctree

import (
	"strconv"
	"strings"
)

// Walk visits s and its descendants depth-first in document order. path holds
// the titles from the root down to the visited section.
func Walk(s *Section, fn func(s *Section, path []string)) {
	walk(s, nil, fn)
}

func walk(s *Section, path []string, fn func(*Section, []string)) {
	path = append(path, s.Title)
	fn(s, path)
	for _, c := range s.Children {
		walk(c, path, fn)
	}
}

// NumberedItem is a checklist item with its position inside its section.
type NumberedItem struct {
	Path     []string
	Position int // 1-based within the owning section
	Item     *ChecklistItem
}

// Number returns every checklist item of the tree in document order with a
// positional number. Numbers are derived per call and never stored.
func Number(root *Section) []NumberedItem {
	var out []NumberedItem
	Walk(root, func(s *Section, path []string) {
		p := append([]string(nil), path...)
		for i, item := range s.Checklist {
			out = append(out, NumberedItem{Path: p, Position: i + 1, Item: item})
		}
	})
	return out
}

// Summary counts sections, items and scored items per priority.
type Summary struct {
	Sections   int            `json:"sections"`
	Items      int            `json:"items"`
	Evaluated  int            `json:"evaluated"`
	ByPriority PriorityCounts `json:"by_priority"`
}

// PriorityCounts is the per-band item count.
type PriorityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Minimal  int `json:"minimal"`
}

// Summarize counts the tree. The root itself is not counted as a section.
func Summarize(root *Section) Summary {
	var sum Summary
	Walk(root, func(s *Section, path []string) {
		if len(path) > 1 {
			sum.Sections++
		}
		for _, item := range s.Checklist {
			sum.Items++
			if item.Evaluation == nil {
				continue
			}
			sum.Evaluated++
			switch item.Evaluation.Priority {
			case PriorityCritical:
				sum.ByPriority.Critical++
			case PriorityHigh:
				sum.ByPriority.High++
			case PriorityMedium:
				sum.ByPriority.Medium++
			case PriorityLow:
				sum.ByPriority.Low++
			case PriorityMinimal:
				sum.ByPriority.Minimal++
			}
		}
	})
	return sum
}

// Outline renders the tree as indented text with numbered checklist items.
func Outline(root *Section) string {
	var b strings.Builder
	writeOutline(&b, root, 0)
	return b.String()
}

func writeOutline(b *strings.Builder, s *Section, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(s.Title)
	b.WriteByte('\n')
	for i, item := range s.Checklist {
		b.WriteString(indent)
		b.WriteString("  ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". [ ] ")
		b.WriteString(item.Text)
		if item.Evaluation != nil {
			b.WriteString(" (")
			b.WriteString(string(item.Evaluation.Priority))
			b.WriteString(")")
		}
		b.WriteByte('\n')
	}
	for _, c := range s.Children {
		writeOutline(b, c, depth+1)
	}
}

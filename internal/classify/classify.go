// Package classify assigns a structural level and a content kind to each
// extracted fragment from numbering, style metadata and typography.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/checkgest/internal/doctree"
)

const defaultFontSize = 12.0

// Fragments shorter than this that are bold count as headers.
const shortHeaderRunes = 100

var (
	listMarkerRes = []*regexp.Regexp{
		regexp.MustCompile(`^[•\-–—·○●◦◉▪▫]\s+`),
		regexp.MustCompile(`^\(\d+\)\s*`),
		regexp.MustCompile(`^\d+\)\s+`),
		regexp.MustCompile(`^[가-힣]\)\s+`),
		regexp.MustCompile(`^\([가-힣]\)\s*`),
		regexp.MustCompile(`^\(?[a-z]\)\s+`),
		regexp.MustCompile(`^[①-⑳]`),
	}

	sectionNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\.(?:\d+\.?)*\s+`),
		regexp.MustCompile(`^[가-힣]\.\s+`),
		regexp.MustCompile(`^제\s*\d+\s*[장절조편관항]`),
		regexp.MustCompile(`^第[0-9一二三四五六七八九十百]+[章節节条條]`),
	}

	romanRe   = regexp.MustCompile(`^[IVX]+\.\s+`)
	headingRe = regexp.MustCompile(`(?i)^heading\s*(\d+)$`)
	titleRe   = regexp.MustCompile(`(?i)^title$`)
)

// Stats are corpus-wide typography figures used by the font rule.
type Stats struct {
	AvgFontSize float64
	MaxFontSize float64
}

// ComputeStats averages the known font sizes of frags. Sources without font
// information get a flat 12pt corpus.
func ComputeStats(frags []doctree.Fragment) Stats {
	var sum, max float64
	var n int
	for _, f := range frags {
		if f.FontSize <= 0 {
			continue
		}
		sum += f.FontSize
		n++
		if f.FontSize > max {
			max = f.FontSize
		}
	}
	if n == 0 {
		return Stats{AvgFontSize: defaultFontSize, MaxFontSize: defaultFontSize}
	}
	return Stats{AvgFontSize: sum / float64(n), MaxFontSize: max}
}

// HasListMarker reports whether text opens with a bullet or an enumerated
// list marker.
func HasListMarker(text string) bool {
	return matchAny(listMarkerRes, text)
}

// HasSectionNumber reports whether text opens with section numbering.
func HasSectionNumber(text string) bool {
	return matchAny(sectionNumberRes, text)
}

// HasMarker reports whether text opens with any structural marker.
func HasMarker(text string) bool {
	return HasListMarker(text) || HasSectionNumber(text) || romanRe.MatchString(text)
}

// HeadingLevel parses "Heading N" style names. "Title" counts as heading 1.
func HeadingLevel(style string) (int, bool) {
	style = strings.TrimSpace(style)
	if titleRe.MatchString(style) {
		return 1, true
	}
	m := headingRe.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Level infers the structural depth of f. The first matching rule wins:
// list markers, section numbering, roman numerals, heading style, then
// typography. Indent is not consulted; sources that nest by indent turn it
// into a marker themselves.
func Level(f doctree.Fragment, st Stats) doctree.Level {
	text := strings.TrimSpace(f.Text)
	switch {
	case HasListMarker(text):
		return doctree.LevelItem
	case HasSectionNumber(text):
		return doctree.LevelSection
	case romanRe.MatchString(text):
		return doctree.LevelTitle
	}

	if n, ok := HeadingLevel(f.Style); ok {
		return clampLevel(n - 1)
	}

	if f.Bold {
		if f.FontSize > 0 && f.FontSize >= 0.9*st.MaxFontSize {
			return doctree.LevelTitle
		}
		if f.FontSize > 0 && f.FontSize >= 1.2*st.AvgFontSize {
			return doctree.LevelSection
		}
		return doctree.LevelItem
	}
	return doctree.LevelDetail
}

// Kind infers the content type of f.
func Kind(f doctree.Fragment) doctree.Kind {
	text := strings.TrimSpace(f.Text)
	if HasListMarker(text) {
		return doctree.KindList
	}
	if _, ok := HeadingLevel(f.Style); ok {
		return doctree.KindHeader
	}
	if f.Bold && utf8.RuneCountInString(text) < shortHeaderRunes {
		return doctree.KindHeader
	}
	return doctree.KindParagraph
}

// Classify returns a copy of frags with blank fragments dropped, text
// trimmed, and Level and Kind assigned.
func Classify(frags []doctree.Fragment) []doctree.Fragment {
	st := ComputeStats(frags)
	out := make([]doctree.Fragment, 0, len(frags))
	for _, f := range frags {
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" {
			continue
		}
		f.Level = Level(f, st)
		f.Kind = Kind(f)
		out = append(out, f)
	}
	return out
}

func clampLevel(n int) doctree.Level {
	if n < int(doctree.LevelTitle) {
		return doctree.LevelTitle
	}
	if n > int(doctree.LevelDetail) {
		return doctree.LevelDetail
	}
	return doctree.Level(n)
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

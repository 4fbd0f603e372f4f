// Package normalize cleans fragment text for use as section titles,
// checklist items and keyword lookups.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/dgallion1/checkgest/internal/doctree"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Leading connectives that make a poor heading start.
	connectiveRe = regexp.MustCompile(`(?i)^(?:그러므로|따라서|또한|그리고|하지만|그러나|즉|또|therefore|thus|also|and|however|but|so)(?:[\s,]+|$)`)

	listMarkerRes = []*regexp.Regexp{
		regexp.MustCompile(`^[-•·–—○●◦◉▪▫](?:\s+|$)`),
		regexp.MustCompile(`^\(\d+\)\s*`),
		regexp.MustCompile(`^\d+[.)]\s+`),
		regexp.MustCompile(`^\([가-힣a-zA-Z]\)\s*`),
		regexp.MustCompile(`^[가-힣a-zA-Z][.)]\s+`),
		regexp.MustCompile(`^[①-⑳]\s*`),
	}
)

// Collapse trims s and folds internal whitespace runs to single spaces.
func Collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// HeaderText turns fragment text into a section title: whitespace collapsed,
// leading connectives removed, capped at doctree.MaxTitleRunes. Numbering
// such as "1." or "II." is kept.
func HeaderText(s string) string {
	s = Collapse(s)
	for {
		stripped := strings.TrimSpace(connectiveRe.ReplaceAllString(s, ""))
		if stripped == s || stripped == "" {
			break
		}
		s = stripped
	}
	return Truncate(s, doctree.MaxTitleRunes)
}

// ListText strips one leading list marker from s.
func ListText(s string) string {
	s = Collapse(s)
	for _, re := range listMarkerRes {
		if loc := re.FindStringIndex(s); loc != nil {
			return strings.TrimSpace(s[loc[1]:])
		}
	}
	return s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}

// Fold prepares text for keyword comparison: NFC, full-width forms folded to
// their narrow equivalents, lower-cased, all whitespace removed.
func Fold(s string) string {
	s = width.Fold.String(norm.NFC.String(s))
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

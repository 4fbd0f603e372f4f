package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/classify"
	"github.com/dgallion1/checkgest/internal/doctree"
)

// TextSource handles plain text files. Every line that opens with a marker
// starts a fragment, other lines continue the current one until a blank line.
// A line underlined with === or --- is a heading.
type TextSource struct{}

func (p *TextSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read text")
	}
	return lineFragments(string(data))
}

var (
	h1UnderlineRe = regexp.MustCompile(`^=+\s*$`)
	h2UnderlineRe = regexp.MustCompile(`^-{3,}\s*$`)
)

func lineFragments(text string) ([]doctree.Fragment, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var frags []doctree.Fragment
	var current *doctree.Fragment
	flush := func() {
		if current != nil {
			frags = append(frags, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), " \t\r")
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case current != nil && !strings.Contains(current.Text, "\n") && h1UnderlineRe.MatchString(line):
			current.Style = "Heading 1"
			flush()
		case current != nil && !strings.Contains(current.Text, "\n") && h2UnderlineRe.MatchString(line):
			current.Style = "Heading 2"
			flush()
		case current == nil || classify.HasMarker(line):
			flush()
			current = &doctree.Fragment{Text: line, Indent: leadingIndent(raw)}
		default:
			current.Text += "\n" + line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan text")
	}
	flush()

	for i := range frags {
		frags[i].Text = strings.ReplaceAll(frags[i].Text, "\n", " ")
	}
	return frags, nil
}

// leadingIndent counts nesting from leading whitespace: four spaces or one
// tab per step.
func leadingIndent(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case ' ':
			spaces++
		case '\t':
			spaces += 4
		default:
			return spaces / 4
		}
	}
	return spaces / 4
}

package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// DOCXSource handles .docx files. Each paragraph becomes a fragment carrying
// its style name and the weight and size of its first text run.
type DOCXSource struct{}

func (p *DOCXSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read docx")
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "parse docx")
	}

	var frags []doctree.Fragment
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if f, ok := docxFragment(para); ok {
			frags = append(frags, f)
		}
	}
	return frags, nil
}

func docxFragment(para *docx.Paragraph) (doctree.Fragment, bool) {
	text := docxParagraphText(para)
	if text == "" {
		return doctree.Fragment{}, false
	}
	f := doctree.Fragment{Text: text, Style: docxStyle(para)}
	if isListStyle(f.Style) && !strings.HasPrefix(text, "•") {
		f.Text = "• " + text
	}
	if run := firstTextRun(para); run != nil && run.RunProperties != nil {
		props := run.RunProperties
		f.Bold = props.Bold != nil
		if props.Size != nil {
			// Sizes are stored in half-points.
			if hp, err := strconv.ParseFloat(props.Size.Val, 64); err == nil {
				f.FontSize = hp / 2
			}
		}
	}
	return f, true
}

// docxStyle maps style IDs like "Heading2" to "Heading 2".
func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	style := strings.TrimSpace(para.Properties.Style.Val)
	lower := strings.ToLower(style)
	if strings.HasPrefix(lower, "heading") {
		if n := strings.TrimSpace(style[len("heading"):]); n != "" {
			return "Heading " + n
		}
	}
	return style
}

func isListStyle(style string) bool {
	return strings.Contains(strings.ToLower(style), "list")
}

func firstTextRun(para *docx.Paragraph) *docx.Run {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok && strings.TrimSpace(t.Text) != "" {
				return run
			}
		}
	}
	return nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

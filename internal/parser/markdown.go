package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// MarkdownSource handles Markdown files using goldmark. Headings carry a
// "Heading N" style, list items come out as bullet fragments and code is
// skipped.
type MarkdownSource struct{}

func (p *MarkdownSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read markdown")
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var frags []doctree.Fragment
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		frags = appendMarkdownBlock(frags, n, src, 0)
	}
	return frags, nil
}

func appendMarkdownBlock(frags []doctree.Fragment, n ast.Node, src []byte, depth int) []doctree.Fragment {
	switch node := n.(type) {
	case *ast.Heading:
		if t := inlineText(node, src); t != "" {
			frags = append(frags, doctree.Fragment{
				Text:  t,
				Style: fmt.Sprintf("Heading %d", node.Level),
				Bold:  true,
			})
		}

	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			frags = appendListItem(frags, item, src, depth)
		}

	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			frags = appendMarkdownBlock(frags, c, src, depth)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
		// not prose

	default:
		if t := inlineText(node, src); t != "" {
			frags = append(frags, doctree.Fragment{Text: t, Bold: isStrongOnly(node)})
		}
	}
	return frags
}

func appendListItem(frags []doctree.Fragment, item ast.Node, src []byte, depth int) []doctree.Fragment {
	var parts []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, c)
			continue
		}
		if t := inlineText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) > 0 {
		frags = append(frags, doctree.Fragment{
			Text:   "- " + strings.Join(parts, " "),
			Indent: depth,
		})
	}
	for _, l := range nested {
		frags = appendMarkdownBlock(frags, l, src, depth+1)
	}
	return frags
}

// inlineText concatenates the text segments under n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// isStrongOnly reports whether a paragraph is a single **strong** span.
func isStrongOnly(n ast.Node) bool {
	if n.ChildCount() != 1 {
		return false
	}
	em, ok := n.FirstChild().(*ast.Emphasis)
	return ok && em.Level == 2
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// HTMLSource handles HTML files. h1-h6 carry a heading style, li elements
// become bullet fragments, and blocks wrapped entirely in b or strong are
// bold. The <title> opens the document when there is no h1.
type HTMLSource struct{}

func (p *HTMLSource) Fragments(r io.Reader, _ Options) ([]doctree.Fragment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}

	var frags []doctree.Fragment
	hasH1 := false

	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textContent(n); t != "" {
					hasH1 = hasH1 || level == 1
					frags = append(frags, doctree.Fragment{
						Text:  t,
						Style: fmt.Sprintf("Heading %d", level),
						Bold:  true,
					})
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "template":
				return
			case "li":
				if t := ownText(n); t != "" {
					frags = append(frags, doctree.Fragment{Text: "- " + t, Indent: depth})
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
						walk(c, depth+1)
					}
				}
				return
			case "p", "td", "th", "blockquote", "dt", "dd", "caption":
				if t := textContent(n); t != "" {
					frags = append(frags, doctree.Fragment{Text: t, Bold: isBoldOnly(n)})
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body, 0)
	} else {
		walk(doc, 0)
	}

	if title := findElement(doc, "title"); title != nil && !hasH1 {
		if t := textContent(title); t != "" {
			frags = append([]doctree.Fragment{{Text: t, Style: "Title", Bold: true}}, frags...)
		}
	}
	return frags, nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// ownText is the text of n without any nested lists.
func ownText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		if t := textContent(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// isBoldOnly reports whether every non-blank text node under n sits inside
// b or strong.
func isBoldOnly(n *html.Node) bool {
	found := false
	var check func(n *html.Node, bold bool) bool
	check = func(n *html.Node, bold bool) bool {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			found = true
			return bold
		}
		if n.Type == html.ElementNode && (n.Data == "b" || n.Data == "strong") {
			bold = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !check(c, bold) {
				return false
			}
		}
		return true
	}
	return check(n, false) && found
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

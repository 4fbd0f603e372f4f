package parser

import (
	"bytes"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/classify"
	"github.com/dgallion1/checkgest/internal/doctree"
)

// PDFSource handles PDF files. It reads text rows with font metadata through
// the Go library and can fall back to pdftotext, which yields text only.
type PDFSource struct {
	FallbackPdftotext bool
	PdftotextPath     string
}

func (p *PDFSource) Fragments(r io.Reader, opts Options) ([]doctree.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read pdf")
	}

	frags, err := pdfFragments(data, opts.Pages)
	if err != nil && p.FallbackPdftotext {
		frags, err = p.pdftotextFragments(data, opts.Pages)
	}
	if err != nil {
		return nil, eris.Wrap(err, "extract pdf text")
	}
	return frags, nil
}

// pdfLine is one visual row of a page.
type pdfLine struct {
	text string
	size float64
	bold bool
	y    float64
}

func pdfFragments(data []byte, pages PageRange) (frags []doctree.Fragment, err error) {
	// The library panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			frags, err = nil, eris.Errorf("pdf reader panic: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	start, end := pages.Bounds(reader.NumPage())
	for i := start; i <= end; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []pdfLine
		for _, row := range rows {
			if line, ok := rowLine(row.Content); ok {
				lines = append(lines, line)
			}
		}
		frags = append(frags, mergeLines(lines, i)...)
	}
	return frags, nil
}

// rowLine joins the glyph runs of a row, inserting a space wherever the
// horizontal gap between runs is wide enough to be one.
func rowLine(texts pdflib.TextHorizontal) (pdfLine, bool) {
	var b strings.Builder
	var sizeSum float64
	var boldRunes, allRunes int
	var prevEnd float64
	for i, t := range texts {
		if t.S == "" {
			continue
		}
		if i > 0 && t.X-prevEnd > 0.25*t.FontSize && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W

		n := len([]rune(t.S))
		allRunes += n
		sizeSum += t.FontSize * float64(n)
		if isBoldFont(t.Font) {
			boldRunes += n
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" || allRunes == 0 {
		return pdfLine{}, false
	}
	line := pdfLine{
		text: text,
		size: sizeSum / float64(allRunes),
		bold: boldRunes*2 > allRunes,
	}
	if len(texts) > 0 {
		line.y = texts[0].Y
	}
	return line, true
}

// mergeLines folds wrapped body lines back into paragraphs. A line joins the
// previous one when neither is bold, both share a font size, the vertical gap
// is a normal line step and the line does not open with a marker.
func mergeLines(lines []pdfLine, page int) []doctree.Fragment {
	var out []doctree.Fragment
	var prev *pdfLine
	for i := range lines {
		line := lines[i]
		if prev != nil && continues(*prev, line) {
			last := &out[len(out)-1]
			last.Text += " " + line.text
			prev = &lines[i]
			continue
		}
		out = append(out, doctree.Fragment{
			Text:     line.text,
			Bold:     line.bold,
			FontSize: math.Round(line.size*10) / 10,
			Page:     page,
		})
		prev = &lines[i]
	}
	return out
}

func continues(prev, line pdfLine) bool {
	if prev.bold || line.bold {
		return false
	}
	if math.Abs(prev.size-line.size) > 0.5 {
		return false
	}
	if gap := prev.y - line.y; gap <= 0 || gap > 1.6*line.size {
		return false
	}
	return !classify.HasMarker(line.text)
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(f, marker) {
			return true
		}
	}
	return false
}

// pdftotextFragments shells out to pdftotext. It needs a file on disk.
func (p *PDFSource) pdftotextFragments(data []byte, pages PageRange) ([]doctree.Fragment, error) {
	tmp, err := os.CreateTemp("", "checkgest-pdf-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, eris.Wrap(err, "write temp file")
	}
	tmp.Close()

	bin := p.PdftotextPath
	if bin == "" {
		bin = "pdftotext"
	}
	args := []string{"-layout"}
	first := 1
	if pages.IsSet() {
		pr := pages.Normalize()
		first = pr.Start
		args = append(args, "-f", strconv.Itoa(pr.Start))
		if pr.End > 0 {
			args = append(args, "-l", strconv.Itoa(pr.End))
		}
	}
	args = append(args, tmpPath, "-")

	out, err := exec.Command(bin, args...).Output()
	if err != nil {
		return nil, eris.Wrap(err, "pdftotext")
	}

	var frags []doctree.Fragment
	for i, text := range strings.Split(string(out), "\f") {
		page, err := lineFragments(text)
		if err != nil {
			return nil, err
		}
		for _, f := range page {
			f.Page = first + i
			frags = append(frags, f)
		}
	}
	return frags, nil
}

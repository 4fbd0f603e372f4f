// Package parser extracts layout-annotated text fragments from documents.
// There is one FragmentSource per format; classification and tree building
// happen downstream and are shared by all of them.
package parser

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// ErrUnsupportedFormat is returned by ForFile for unknown extensions.
var ErrUnsupportedFormat = eris.New("unsupported file format")

// FragmentSource reads one document and returns its fragments in reading
// order. Level and Kind are left for the classifier.
type FragmentSource interface {
	Fragments(r io.Reader, opts Options) ([]doctree.Fragment, error)
}

// Options apply to a single extraction.
type Options struct {
	// Pages limits page-based sources. The zero value means all pages.
	Pages PageRange
}

// Settings configure the sources ForFile hands out.
type Settings struct {
	PDFFallbackPdftotext bool
	PdftotextPath        string
}

// SourceKind groups formats by how they carry structure.
type SourceKind string

const (
	KindPage      SourceKind = "page"
	KindParagraph SourceKind = "paragraph"
	KindTabular   SourceKind = "tabular"
)

// SupportedExtensions maps each handled extension to its source kind.
var SupportedExtensions = map[string]SourceKind{
	".pdf":      KindPage,
	".docx":     KindParagraph,
	".md":       KindParagraph,
	".markdown": KindParagraph,
	".html":     KindParagraph,
	".htm":      KindParagraph,
	".txt":      KindParagraph,
	".xlsx":     KindTabular,
	".csv":      KindTabular,
}

// ForFile returns the source for a filename based on its extension.
func ForFile(filename string, s Settings) (FragmentSource, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFSource{FallbackPdftotext: s.PDFFallbackPdftotext, PdftotextPath: s.PdftotextPath}, nil
	case ".docx":
		return &DOCXSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".txt":
		return &TextSource{}, nil
	case ".xlsx":
		return &XLSXSource{}, nil
	case ".csv":
		return &CSVSource{}, nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
}

// IsSupported checks if a file extension is supported.
func IsSupported(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// KindOf returns the source kind for filename, or "" when unsupported.
func KindOf(filename string) SourceKind {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Stem returns the base filename without its extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

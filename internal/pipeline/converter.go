package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/classify"
	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/hierarchy"
	"github.com/dgallion1/checkgest/internal/normalize"
	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/scope"
	"github.com/dgallion1/checkgest/internal/scoring"
)

// Status is the outcome of converting one document. Only a failed
// extraction is an error; every other outcome is a status.
type Status string

const (
	StatusOK              Status = "ok"
	StatusEmpty           Status = "empty_document"
	StatusNoItems         Status = "no_items"
	StatusKeywordNotFound Status = "keyword_not_found"
	StatusCancelled       Status = "cancelled"
)

// Strategy names how the tree was built.
type Strategy string

const (
	StrategyRules Strategy = "rules"
	StrategyLLM   Strategy = "llm"
)

const untitled = "Untitled document"

// ExtractionError means the source could not be read at all.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Structurer builds a section tree by other means than the rule-based
// builder. A failed or rejected attempt makes the converter fall back.
type Structurer interface {
	Structure(ctx context.Context, title string, frags []doctree.Fragment) (*doctree.Section, error)
}

// Options control a single conversion.
type Options struct {
	Pages         parser.PageRange
	Keyword       string
	Disambiguator scope.Disambiguator
	Evaluate      bool
	UseStructurer bool
	// Title overrides the inferred root title.
	Title string
}

// Key identifies the options for result reuse. The second value is false
// when the outcome depends on an interactive choice and must not be reused.
func (o Options) Key() (string, bool) {
	sel := ""
	switch d := o.Disambiguator.(type) {
	case nil:
	case scope.Ordinal:
		sel = fmt.Sprintf("#%d", int(d))
	case scope.Preselected:
		sel = fmt.Sprintf("@%d", int(d))
	default:
		if o.Keyword != "" {
			return "", false
		}
	}
	return fmt.Sprintf("pages=%s;kw=%s%s;eval=%t;llm=%t;title=%s",
		o.Pages.Normalize(), normalize.Fold(o.Keyword), sel, o.Evaluate, o.UseStructurer, o.Title), true
}

// Result is one converted document. Tree is nil for StatusEmpty,
// StatusKeywordNotFound and StatusCancelled.
type Result struct {
	Status      Status              `json:"status"`
	Source      string              `json:"source"`
	Tree        *doctree.Section    `json:"tree,omitempty"`
	Candidates  []scope.Candidate   `json:"candidates,omitempty"`
	Summary     doctree.Summary     `json:"summary"`
	Strategy    Strategy            `json:"strategy,omitempty"`
	ContentHash string              `json:"content_hash"`
	Scoring     scoring.ApplyResult `json:"-"`
}

// Converter runs sources through classification, tree building and
// scoring.
type Converter struct {
	settings   parser.Settings
	structurer Structurer
	log        *zap.Logger
}

// NewConverter returns a Converter. structurer may be nil.
func NewConverter(settings parser.Settings, structurer Structurer, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{settings: settings, structurer: structurer, log: log}
}

// Convert reads the document named name from r. The name selects the
// format and feeds the generic title.
func (c *Converter) Convert(ctx context.Context, name string, r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExtractionError{Source: name, Err: eris.Wrap(err, "read")}
	}
	return c.ConvertBytes(ctx, name, data, opts)
}

func (c *Converter) ConvertBytes(ctx context.Context, name string, data []byte, opts Options) (*Result, error) {
	log := c.log.With(zap.String("source", name))
	res := &Result{Source: name, ContentHash: ContentHashHex(data)}

	src, err := parser.ForFile(name, c.settings)
	if err != nil {
		return nil, &ExtractionError{Source: name, Err: err}
	}
	frags, err := src.Fragments(bytes.NewReader(data), parser.Options{Pages: opts.Pages})
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return nil, &ExtractionError{Source: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "convert")
	}

	frags = classify.Classify(frags)
	if len(frags) == 0 {
		log.Info("no text in document")
		res.Status = StatusEmpty
		return res, nil
	}

	fallback := GenericTitle(name, opts.Pages)
	title := documentTitle(frags, fallback)
	if opts.Title != "" {
		title = opts.Title
	}

	if opts.Keyword != "" {
		return c.scoped(ctx, res, frags, title, opts)
	}

	res.Tree, res.Strategy = c.build(ctx, frags, fallback, title, opts, log)
	if opts.Title != "" {
		res.Tree.Title = opts.Title
	}
	return c.finish(res, opts, log), nil
}

func (c *Converter) scoped(ctx context.Context, res *Result, frags []doctree.Fragment, title string, opts Options) (*Result, error) {
	found, err := scope.Filter(ctx, frags, opts.Keyword, opts.Disambiguator)
	if eris.Is(err, scope.ErrKeywordNotFound) {
		res.Status = StatusKeywordNotFound
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.Candidates = found.Candidates
	if found.Cancelled {
		res.Status = StatusCancelled
		return res, nil
	}
	res.Tree = scope.Tree(found, title, opts.Keyword)
	res.Strategy = StrategyRules
	return c.finish(res, opts, c.log.With(zap.String("source", res.Source))), nil
}

func (c *Converter) build(ctx context.Context, frags []doctree.Fragment, fallback, title string, opts Options, log *zap.Logger) (*doctree.Section, Strategy) {
	if opts.UseStructurer && c.structurer != nil {
		tree, err := c.structurer.Structure(ctx, title, frags)
		if err == nil {
			return tree, StrategyLLM
		}
		log.Warn("structurer failed, using rule-based builder", zap.Error(err))
	}
	return hierarchy.Build(frags, fallback), StrategyRules
}

func (c *Converter) finish(res *Result, opts Options, log *zap.Logger) *Result {
	if opts.Evaluate {
		res.Scoring = scoring.Apply(res.Tree, log)
	}
	res.Summary = doctree.Summarize(res.Tree)
	if res.Summary.Items == 0 {
		res.Status = StatusNoItems
	} else {
		res.Status = StatusOK
	}
	log.Info("document converted",
		zap.String("status", string(res.Status)),
		zap.String("strategy", string(res.Strategy)),
		zap.Int("sections", res.Summary.Sections),
		zap.Int("items", res.Summary.Items),
	)
	return res
}

// GenericTitle names a document that has no title of its own: the file stem,
// with the page range when one was requested.
func GenericTitle(name string, pages parser.PageRange) string {
	stem := parser.Stem(name)
	if stem == "" || stem == "." {
		return untitled
	}
	if pages.IsSet() {
		return stem + ", " + pages.String()
	}
	return stem
}

// documentTitle mirrors the root title hierarchy.Build picks.
func documentTitle(frags []doctree.Fragment, fallback string) string {
	if len(frags) > 0 && frags[0].Level == doctree.LevelTitle {
		if t := normalize.HeaderText(frags[0].Text); t != "" {
			return t
		}
	}
	return fallback
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/scope"
	"github.com/dgallion1/checkgest/internal/structurer"
	"github.com/dgallion1/checkgest/internal/tui"
)

// newConverter wires the converter and, when enabled, the LLM structurer.
// The returned stats are nil without a structurer.
func newConverter(log *zap.Logger) (*pipeline.Converter, *structurer.Stats) {
	var s pipeline.Structurer
	var stats *structurer.Stats
	if cfg.Structurer.Enabled {
		stats = structurer.NewStats(time.Hour)
		client := structurer.NewCompleter(cfg.Structurer.APIKey, cfg.Structurer.BaseURL)
		s = structurer.New(client, cfg.LLMConfig(), stats, log)
	}
	return pipeline.NewConverter(cfg.ParserSettings(), s, log), stats
}

// addConvertFlags registers the flags shared by convert, batch and watch.
func addConvertFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("pages", "", "page range, e.g. 3-5, 3- or 4")
	f.String("keyword", "", "only convert the section matching this keyword")
	f.Int("select", 0, "pick the n-th match when the keyword is ambiguous")
	f.Bool("evaluate", false, "score checklist items (default from scoring.enabled)")
	f.Bool("llm", false, "structure with the LLM, falling back to rules (default from structurer.enabled)")
	f.String("title", "", "override the root title")
}

// convertOptions reads the shared flags. interactive allows the terminal
// picker for ambiguous keywords when no --select is given.
func convertOptions(cmd *cobra.Command, interactive bool) (pipeline.Options, error) {
	f := cmd.Flags()
	var opts pipeline.Options

	pages, _ := f.GetString("pages")
	pr, err := parser.ParsePageRange(pages)
	if err != nil {
		return opts, err
	}
	opts.Pages = pr

	opts.Keyword, _ = f.GetString("keyword")
	opts.Title, _ = f.GetString("title")

	sel, _ := f.GetInt("select")
	switch {
	case sel < 0:
		return opts, eris.New("--select must be positive")
	case sel > 0:
		opts.Disambiguator = scope.Ordinal(sel)
	case interactive && opts.Keyword != "" && isTerminal():
		opts.Disambiguator = tui.NewPicker(nil, os.Stderr)
	}

	opts.Evaluate = cfg.Scoring.Enabled
	if f.Changed("evaluate") {
		opts.Evaluate, _ = f.GetBool("evaluate")
	}
	opts.UseStructurer = cfg.Structurer.Enabled
	if f.Changed("llm") {
		opts.UseStructurer, _ = f.GetBool("llm")
	}
	return opts, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

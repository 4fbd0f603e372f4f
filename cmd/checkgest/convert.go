package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/pipeline"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one document into a checklist tree",
	Long: `Convert one document into a checklist tree.

Examples:
  # Whole document as JSON
  checkgest convert plan.docx

  # Pages 3 to 5 only, scored, as a numbered outline
  checkgest convert report.pdf --pages 3-5 --evaluate --format outline

  # Only the section about permits; pick the second match if several
  checkgest convert plan.docx --keyword permits --select 2`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	f := convertCmd.Flags()
	f.String("format", "tree", "output format: tree, result or outline")
	f.StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "tree" && format != "result" && format != "outline" {
		return eris.Errorf("unknown format %q", format)
	}
	opts, err := convertOptions(cmd, true)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "convert"))
	conv, _ := newConverter(log)

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	res, err := conv.Convert(ctx, path, f, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o, _ := cmd.Flags().GetString("output"); o != "" {
		file, err := os.Create(o)
		if err != nil {
			return eris.Wrapf(err, "create %s", o)
		}
		defer file.Close()
		out = file
	}

	if err := writeResult(out, res, format); err != nil {
		return err
	}
	return statusError(res)
}

// writeResult renders res in format. Results without a tree only render
// as "result".
func writeResult(w io.Writer, res *pipeline.Result, format string) error {
	switch {
	case format == "result":
		return writeJSON(w, res)
	case res.Tree == nil:
		return nil
	case format == "outline":
		_, err := io.WriteString(w, doctree.Outline(res.Tree))
		return err
	default:
		return writeJSON(w, res.Tree)
	}
}

// statusError turns outcomes that produced nothing into a command error so
// the exit code reflects them.
func statusError(res *pipeline.Result) error {
	switch res.Status {
	case pipeline.StatusEmpty:
		return eris.Errorf("%s: no text found", res.Source)
	case pipeline.StatusKeywordNotFound:
		return eris.Errorf("%s: keyword not found", res.Source)
	case pipeline.StatusCancelled:
		msg := fmt.Sprintf("%s: keyword is ambiguous; rerun with --select N:", res.Source)
		for i, c := range res.Candidates {
			msg += fmt.Sprintf("\n  %d. %s", i+1, c.Text)
		}
		return eris.New(msg)
	}
	return nil
}

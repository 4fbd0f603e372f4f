package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/watch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|dir>...",
	Short: "Convert many documents concurrently",
	Long: `Convert many documents concurrently. Directories are expanded to the
supported files they contain. With --out-dir each tree is written to
<stem>.checklist.json; otherwise a summary table is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addConvertFlags(batchCmd)
	f := batchCmd.Flags()
	f.Int("concurrency", 0, "conversions in flight (default from batch.concurrency)")
	f.String("out-dir", "", "write one checklist file per document here")
	f.Bool("json", false, "print every outcome as JSON instead of a table")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := convertOptions(cmd, false)
	if err != nil {
		return err
	}
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return eris.New("no supported documents found")
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Batch.Concurrency
	}

	log := zap.L().With(zap.String("command", "batch"))
	conv, _ := newConverter(log)

	outcomes, err := pipeline.RunBatch(ctx, conv, paths, opts, concurrency)
	if err != nil {
		return err
	}

	if outDir, _ := cmd.Flags().GetString("out-dir"); outDir != "" {
		if err := writeTrees(outDir, outcomes); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := writeJSON(cmd.OutOrStdout(), outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(cmd.OutOrStdout(), outcomes)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return eris.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}

// expandPaths replaces directories with the supported files directly inside
// them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files surface as per-document failures.
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "read dir %s", arg)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && parser.IsSupported(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

func writeTrees(outDir string, outcomes []pipeline.BatchOutcome) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return eris.Wrapf(err, "create %s", outDir)
	}
	for _, o := range outcomes {
		if o.Result == nil || o.Result.Tree == nil {
			continue
		}
		f, err := os.Create(watch.OutputPath(outDir, o.Path))
		if err != nil {
			return eris.Wrap(err, "create checklist file")
		}
		err = writeJSON(f, o.Result.Tree)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return eris.Wrapf(err, "write checklist for %s", o.Path)
		}
	}
	return nil
}

func printOutcomes(w io.Writer, outcomes []pipeline.BatchOutcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tSECTIONS\tITEMS\tSTRATEGY")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\terror\t-\t-\t%s\n", o.Path, o.Error)
			continue
		}
		r := o.Result
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", o.Path, r.Status, r.Summary.Sections, r.Summary.Items, r.Strategy)
	}
	tw.Flush()
}

package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/scoring"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the weighted priority model on explicit scores",
	Long: `Run the weighted priority model on explicit criterion scores and factors.

Examples:
  checkgest evaluate --scores 5,4,5,2,5 --dependency 1.2 --gate 0.5

  # The same inputs as JSON, keyed like the evaluation output
  checkgest evaluate --input inputs.json
  echo '{"C1_approval":{"score":5}, ...}' | checkgest evaluate --input -`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var scoreCmd = &cobra.Command{
	Use:   "score <text>...",
	Short: "Score a piece of text with the keyword rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := scoring.EvaluateText(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ev)
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.String("scores", "", "five comma-separated criterion scores (C1..C5), each 1-5")
	f.String("input", "", "JSON input file, or - for stdin")
	f.Float64("uncertainty", 1.0, "uncertainty factor: 0.9, 1.0, 1.1 or 1.2")
	f.Float64("dependency", 1.0, "dependency factor: 1.0, 1.1 or 1.2")
	f.Float64("gate", 0, "regulatory gate flag: 0 or 0.5")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(scoreCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	in, err := evaluateInput(cmd)
	if err != nil {
		return err
	}
	ev, err := scoring.EvaluateInput(in)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

func evaluateInput(cmd *cobra.Command) (scoring.Input, error) {
	f := cmd.Flags()
	var in scoring.Input

	if path, _ := f.GetString("input"); path != "" {
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			file, err := os.Open(path)
			if err != nil {
				return in, eris.Wrapf(err, "open %s", path)
			}
			defer file.Close()
			r = file
		}
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return in, eris.Wrap(err, "decode input")
		}
		return in, nil
	}

	raw, _ := f.GetString("scores")
	scores, err := parseScores(raw)
	if err != nil {
		return in, err
	}
	in.Approval, in.CostSchedule, in.EnvironmentSafety, in.Operation, in.Reversibility =
		&scores[0], &scores[1], &scores[2], &scores[3], &scores[4]

	u, _ := f.GetFloat64("uncertainty")
	d, _ := f.GetFloat64("dependency")
	g, _ := f.GetFloat64("gate")
	in.UncertaintyFactor, in.DependencyFactor, in.RegulatoryGateFlag = &u, &d, &g
	return in, nil
}

func parseScores(raw string) ([scoring.NumCriteria]doctree.CriterionScore, error) {
	var out [scoring.NumCriteria]doctree.CriterionScore
	parts := strings.Split(raw, ",")
	if strings.TrimSpace(raw) == "" || len(parts) != scoring.NumCriteria {
		return out, eris.Errorf("--scores needs %d comma-separated values", scoring.NumCriteria)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, eris.Errorf("score %q is not an integer", p)
		}
		out[i] = doctree.CriterionScore{Score: n, Rationale: "given"}
	}
	return out, nil
}

package scoring

import (
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/doctree"
)

// ApplyResult counts the outcome of scoring a tree.
type ApplyResult struct {
	Scored int
	Failed int
}

// Apply evaluates every checklist item in the tree and stores the result on
// the item. An item that fails evaluation keeps its previous score and the
// walk continues with its siblings.
func Apply(root *doctree.Section, log *zap.Logger) ApplyResult {
	if log == nil {
		log = zap.NewNop()
	}
	var res ApplyResult
	doctree.Walk(root, func(s *doctree.Section, _ []string) {
		for _, item := range s.Checklist {
			ev, err := EvaluateText(item.Text)
			if err != nil {
				res.Failed++
				log.Warn("checklist item evaluation failed",
					zap.String("section", s.Title),
					zap.String("item", item.Text),
					zap.Error(err),
				)
				continue
			}
			item.SetEvaluation(ev)
			res.Scored++
		}
	})
	return res
}

package pipeline

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchOutcome is the result of one file in a batch. Exactly one of Result
// and Err is set.
type BatchOutcome struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// RunBatch converts every file in paths with at most concurrency
// conversions in flight. A failing file never stops the others; outcomes
// come back in input order.
func RunBatch(ctx context.Context, conv *Converter, paths []string, opts Options, concurrency int) ([]BatchOutcome, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	outcomes := make([]BatchOutcome, len(paths))

	conv.log.Info("processing batch",
		zap.Int("files", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, path := range paths {
		g.Go(func() error {
			out := BatchOutcome{Path: path}
			res, err := convertFile(gctx, conv, path, opts)
			if err != nil {
				failed.Add(1)
				out.Err = err
				out.Error = err.Error()
				conv.log.Error("conversion failed", zap.String("path", path), zap.Error(err))
			} else {
				succeeded.Add(1)
				out.Result = res
			}
			outcomes[i] = out
			// Per-file failures are recorded, not propagated.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, eris.Wrap(err, "batch processing")
	}
	if err := ctx.Err(); err != nil {
		return outcomes, eris.Wrap(err, "batch cancelled")
	}

	conv.log.Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes, nil
}

func convertFile(ctx context.Context, conv *Converter, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Source: path, Err: eris.Wrap(err, "read file")}
	}
	return conv.ConvertBytes(ctx, path, data, opts)
}

package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/store"
)

// ResultStore persists finished conversions. *store.SQLiteStore implements it.
type ResultStore interface {
	Save(ctx context.Context, c *store.Conversion) error
	FindByHash(ctx context.Context, contentHash, optionsKey string) (*store.Conversion, error)
}

// Worker processes a single conversion job.
type Worker struct {
	conv  *Converter
	store ResultStore
	log   *zap.Logger
}

// NewWorker returns a Worker. st may be nil, which disables reuse and
// persistence.
func NewWorker(conv *Converter, st ResultStore, log *zap.Logger) *Worker {
	return &Worker{conv: conv, store: st, log: log}
}

// Process converts the job's file, reusing a stored tree for identical
// content and options.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With(zap.String("job_id", job.ID), zap.String("filename", job.Filename))
	data := job.FileData()
	hash := ContentHashHex(data)
	key, cacheable := job.opts.Key()

	if w.store != nil && cacheable {
		prev, err := w.store.FindByHash(ctx, hash, key)
		if err != nil {
			log.Warn("dedup lookup failed, proceeding", zap.Error(err))
		} else if prev != nil {
			res, err := resultFromConversion(prev)
			if err == nil {
				log.Info("reusing stored conversion", zap.String("conversion_id", prev.ID))
				job.SetResult(res)
				job.SetConversionID(prev.ID)
				job.SetStatus(StatusReused, "done")
				return
			}
			log.Warn("stored conversion unreadable, converting again", zap.Error(err))
		}
	}

	job.SetStatus(StatusConverting, "converting")
	res, err := w.conv.ConvertBytes(ctx, job.Filename, data, job.opts)
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.SetResult(res)

	if w.store != nil && res.Tree != nil {
		job.SetStatus(StatusStoring, "storing")
		if err := w.save(ctx, job, res, key); err != nil {
			// The result is still served from memory.
			log.Error("store failed", zap.Error(err))
			job.AddError("store: " + err.Error())
		}
	}
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) save(ctx context.Context, job *Job, res *Result, key string) error {
	tree, err := json.Marshal(res.Tree)
	if err != nil {
		return err
	}
	c := &store.Conversion{
		Source:      job.Filename,
		ContentHash: res.ContentHash,
		OptionsKey:  key,
		Status:      string(res.Status),
		Strategy:    string(res.Strategy),
		Tree:        tree,
	}
	if err := w.store.Save(ctx, c); err != nil {
		return err
	}
	job.SetConversionID(c.ID)
	return nil
}

func resultFromConversion(c *store.Conversion) (*Result, error) {
	res := &Result{
		Status:      Status(c.Status),
		Source:      c.Source,
		Strategy:    Strategy(c.Strategy),
		ContentHash: c.ContentHash,
	}
	if len(c.Tree) > 0 {
		var tree doctree.Section
		if err := json.Unmarshal(c.Tree, &tree); err != nil {
			return nil, err
		}
		res.Tree = &tree
		res.Summary = doctree.Summarize(&tree)
	}
	return res, nil
}

// Package watch converts documents as they appear in a directory.
package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/pipeline"
)

// OutputSuffix is appended to a source's stem to name its checklist file.
const OutputSuffix = ".checklist.json"

const defaultDebounce = 500 * time.Millisecond

// Config controls a Watcher.
type Config struct {
	Dir string
	// OutDir receives checklist files. Empty means Dir.
	OutDir  string
	Options pipeline.Options
	// Debounce is how long a file must stay quiet before it is converted.
	Debounce time.Duration
	// Existing converts files already in Dir on start.
	Existing bool
}

// Watcher converts supported files created or written in a directory.
type Watcher struct {
	conv *pipeline.Converter
	cfg  Config
	log  *zap.Logger

	mu     sync.Mutex
	hashes map[string]string
}

func New(conv *pipeline.Converter, cfg Config, log *zap.Logger) *Watcher {
	if cfg.OutDir == "" {
		cfg.OutDir = cfg.Dir
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		conv:   conv,
		cfg:    cfg,
		log:    log.Named("watch").With(zap.String("dir", cfg.Dir)),
		hashes: make(map[string]string),
	}
}

// OutputPath names the checklist file for source inside outDir.
func OutputPath(outDir, source string) string {
	return filepath.Join(outDir, parser.Stem(source)+OutputSuffix)
}

// Watchable reports whether a file name is worth converting. Hidden files
// and editor lock files are skipped.
func Watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return parser.IsSupported(base)
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.OutDir, 0o755); err != nil {
		return eris.Wrap(err, "watch: create output dir")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "watch: create watcher")
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return eris.Wrapf(err, "watch: add %s", w.cfg.Dir)
	}
	w.log.Info("watching", zap.String("out_dir", w.cfg.OutDir))

	if w.cfg.Existing {
		w.convertExisting(ctx)
	}

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
				w.forget(ev.Name)
			case (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) && Watchable(ev.Name):
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < w.cfg.Debounce {
					continue
				}
				delete(pending, path)
				w.handle(ctx, path)
			}
		}
	}
}

func (w *Watcher) convertExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.log.Warn("listing existing files", zap.Error(err))
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.Type().IsRegular() && Watchable(e.Name()) {
			w.handle(ctx, filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	out, err := w.ConvertFile(ctx, path)
	switch {
	case err != nil:
		w.log.Error("conversion failed", zap.String("path", path), zap.Error(err))
	case out != "":
		w.log.Info("wrote checklist", zap.String("path", path), zap.String("output", out))
	}
}

// ConvertFile converts path and writes its checklist file. It returns the
// output path, or "" when the content is unchanged since the last
// conversion or the conversion produced no tree.
func (w *Watcher) ConvertFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "watch: read %s", path)
	}

	hash := pipeline.ContentHashHex(data)
	w.mu.Lock()
	unchanged := w.hashes[path] == hash
	w.mu.Unlock()
	if unchanged {
		return "", nil
	}

	res, err := w.conv.ConvertBytes(ctx, filepath.Base(path), data, w.cfg.Options)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.hashes[path] = hash
	w.mu.Unlock()

	if res.Tree == nil {
		w.log.Info("no checklist produced", zap.String("path", path), zap.String("status", string(res.Status)))
		return "", nil
	}

	out := OutputPath(w.cfg.OutDir, path)
	body, err := json.MarshalIndent(res.Tree, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "watch: encode tree")
	}
	if err := writeFileAtomic(out, append(body, '\n')); err != nil {
		return "", err
	}
	return out, nil
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.hashes, path)
	w.mu.Unlock()
}

// writeFileAtomic writes through a temp file in the same directory so
// readers never see a partial checklist.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkgest-*")
	if err != nil {
		return eris.Wrap(err, "watch: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "watch: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "watch: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "watch: rename to %s", path)
	}
	return nil
}

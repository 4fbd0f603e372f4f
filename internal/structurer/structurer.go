// Package structurer asks a language model to build the section tree and
// accepts the answer only when it passes schema validation.
package structurer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgallion1/checkgest/internal/doctree"
)

const temperature = 0.3

var ErrNoFragments = eris.New("no fragments to structure")

type Config struct {
	Model             string
	MaxTokens         int64
	MaxPromptTokens   int
	RequestsPerMinute int
}

// Structurer turns fragments into a validated section tree.
type Structurer struct {
	client  Completer
	cfg     Config
	limiter *rate.Limiter
	stats   *Stats
	log     *zap.Logger
}

func New(client Completer, cfg Config, stats *Stats, log *zap.Logger) *Structurer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = 6000
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &Structurer{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		stats:   stats,
		log:     log.Named("structurer"),
	}
}

func (s *Structurer) Stats() *Stats { return s.stats }

// Structure sends the fragments to the model and returns the validated tree.
// Transient API errors are retried up to MaxRetries times. Any error means
// the caller falls back to the rule-based builder and is counted as such.
func (s *Structurer) Structure(ctx context.Context, title string, frags []doctree.Fragment) (*doctree.Section, error) {
	tree, err := s.structure(ctx, title, frags)
	if err != nil {
		s.stats.RecordFallback()
	}
	return tree, err
}

func (s *Structurer) structure(ctx context.Context, title string, frags []doctree.Fragment) (*doctree.Section, error) {
	if len(frags) == 0 {
		return nil, ErrNoFragments
	}
	prompt, used := BuildPrompt(title, frags, s.cfg.MaxPromptTokens)
	if used == 0 {
		return nil, eris.Errorf("first fragment exceeds the %d token prompt budget", s.cfg.MaxPromptTokens)
	}
	if used < len(frags) {
		s.log.Warn("prompt truncated",
			zap.String("title", title),
			zap.Int("fragments", len(frags)),
			zap.Int("included", used),
		)
	}

	req := Request{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: temperature,
	}

	resp, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	tree, err := ParseTree(resp.Text)
	if err != nil {
		s.log.Warn("model output rejected", zap.String("title", title), zap.Error(err))
		return nil, err
	}
	return tree, nil
}

func (s *Structurer) complete(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			s.log.Info("retrying model call", zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "structure")
			case <-time.After(wait):
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit wait")
		}

		start := time.Now()
		resp, err := s.client.Complete(ctx, req)
		if err == nil {
			s.stats.Record(time.Since(start).Milliseconds(), resp.InputTokens, resp.OutputTokens)
			return resp, nil
		}
		s.stats.RecordFailure()
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	s.log.Warn("model call failed", zap.Int("retries", MaxRetries), zap.Error(lastErr))
	return nil, lastErr
}

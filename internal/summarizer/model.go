package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ryosukesatoh/feed-digest/internal/extract"
	"github.com/ryosukesatoh/feed-digest/internal/retry"
)

// maxSummaryChars bounds a single article summary.
const maxSummaryChars = 300

// Limits bounds model input and output.
type Limits struct {
	ArticleMaxTokens int
	DigestMaxTokens  int
	Temperature      float32
	MaxContentChars  int
	MaxDigestInputs  int
	// CallTimeout bounds each model call attempt. Zero leaves it to ctx.
	CallTimeout time.Duration
}

// ModelSummarizer asks a remote model for summaries and digests.
type ModelSummarizer struct {
	model    Model
	limits   Limits
	retry    retry.Config
	fallback Summarizer
	logger   *slog.Logger
}

var _ Summarizer = (*ModelSummarizer)(nil)

// NewModelSummarizer builds a model-backed summarizer. When fallback is
// non-nil it answers for failed model calls; otherwise failures come back
// as tagged "[model error: ...]" strings.
func NewModelSummarizer(model Model, limits Limits, rc retry.Config, fallback Summarizer, logger *slog.Logger) *ModelSummarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelSummarizer{
		model:    model,
		limits:   limits,
		retry:    rc,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *ModelSummarizer) Backend() string {
	return "model:" + s.model.Name()
}

func (s *ModelSummarizer) Summarize(ctx context.Context, a Article, opts Options) string {
	content := extract.Text(a.Content, s.limits.MaxContentChars)
	if content == "" {
		return NoSignals
	}

	prompt := ArticlePrompt(opts.ArticlePrompt, a.Title, content)
	text, err := s.generate(ctx, prompt, s.limits.ArticleMaxTokens)
	if err != nil {
		s.logger.Warn("article summary failed", "title", a.Title, "error", err)
		if s.fallback != nil {
			return s.fallback.Summarize(ctx, a, opts)
		}
		return ModelError(err)
	}
	return finishSentence(text)
}

func (s *ModelSummarizer) Digest(ctx context.Context, summaries []string, opts Options) string {
	cleaned := FilterSummaries(summaries, s.limits.MaxDigestInputs)
	if len(cleaned) == 0 {
		return NoSignalsDigest
	}

	prompt := DigestPrompt(opts.DigestPrompt, cleaned)
	text, err := s.generate(ctx, prompt, s.limits.DigestMaxTokens)
	if err != nil {
		s.logger.Warn("digest failed", "summaries", len(cleaned), "error", err)
		if s.fallback != nil {
			return s.fallback.Digest(ctx, summaries, opts)
		}
		return ModelError(err)
	}
	text = strings.TrimSpace(capBullets(text, maxDigestBullets))
	if text == "" {
		return NoSignalsDigest
	}
	return text
}

// Raw sends prompt as-is with the token budget of the named call
// ("article" or "digest") and returns the unprocessed reply.
func (s *ModelSummarizer) Raw(ctx context.Context, prompt, which string) (string, error) {
	maxTokens := s.limits.ArticleMaxTokens
	if which == "digest" {
		maxTokens = s.limits.DigestMaxTokens
	}
	return s.generate(ctx, prompt, maxTokens)
}

func (s *ModelSummarizer) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var text string
	err := retry.WithBackoff(ctx, s.retry, func(ctx context.Context) error {
		if s.limits.CallTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.limits.CallTimeout)
			defer cancel()
		}
		out, err := s.model.Generate(ctx, prompt, GenerateOptions{
			MaxTokens:   maxTokens,
			Temperature: s.limits.Temperature,
		})
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.model.Name(), err)
	}
	return text, nil
}

// finishSentence reduces model output to one bounded sentence. Empty output
// becomes the NoSignals sentinel.
func finishSentence(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return NoSignals
	}
	sentence := extract.FirstSentence(text)
	if utf8.RuneCountInString(sentence) > maxSummaryChars {
		sentence = extract.FirstSentence(extract.Truncate(sentence, maxSummaryChars-1))
	}
	if sentence == "" {
		return NoSignals
	}
	return sentence
}

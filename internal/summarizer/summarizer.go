package summarizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ryosukesatoh/feed-digest/internal/config"
	"github.com/ryosukesatoh/feed-digest/internal/retry"
)

// ErrUnsupportedProvider is returned for an unknown model provider.
var ErrUnsupportedProvider = fmt.Errorf("unsupported model provider")

// NewModel creates the configured model client, or nil when no API key is
// set.
func NewModel(ctx context.Context, cfg *config.Config) (Model, error) {
	if !cfg.ModelConfigured() {
		return nil, nil
	}
	switch cfg.Model.Provider {
	case "gemini":
		m, err := NewGeminiModel(ctx, cfg.Model.APIKey, cfg.Model.Name)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "anthropic":
		return NewAnthropicModel(cfg.Model.APIKey, cfg.Model.Name, cfg.Model.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Model.Provider)
	}
}

// New creates a summarizer. With a nil model it is heuristic only.
func New(cfg *config.Config, model Model, logger *slog.Logger) Summarizer {
	heuristic := NewHeuristicSummarizer(cfg.Limits.MaxContentChars, cfg.Limits.MaxDigestInputs)
	if model == nil {
		return heuristic
	}

	var fallback Summarizer
	if cfg.Model.FallbackOnError {
		fallback = heuristic
	}
	return NewModelSummarizer(model, Limits{
		ArticleMaxTokens: cfg.Model.ArticleMaxTokens,
		DigestMaxTokens:  cfg.Model.DigestMaxTokens,
		Temperature:      cfg.Model.Temperature,
		MaxContentChars:  cfg.Limits.MaxContentChars,
		MaxDigestInputs:  cfg.Limits.MaxDigestInputs,
		CallTimeout:      cfg.Model.Timeout,
	}, retry.Config{
		MaxRetries: cfg.Model.Retries,
		BaseDelay:  time.Second,
	}, fallback, logger)
}

// CloseModel releases model resources when the model holds any.
func CloseModel(m Model) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
